package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vantage-go/internal/database"
	"vantage-go/internal/models"
)

// CreateSession starts a new attempt with its assigned vignettes.
func CreateSession(ctx context.Context, practical, creative []int64) (*models.AssessmentSession, error) {
	now := time.Now().UTC()
	session := &models.AssessmentSession{
		ID:                 uuid.New(),
		Status:             models.SessionInProgress,
		PracticalVignettes: practical,
		CreativeVignettes:  creative,
		StartedAt:          &now,
	}
	if err := database.DB.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// GetSession loads one session row.
func GetSession(ctx context.Context, id uuid.UUID) (*models.AssessmentSession, error) {
	var session models.AssessmentSession
	if err := database.DB.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// CompleteSession marks the attempt finished. Status is monotonic; a
// completed session stays completed.
func CompleteSession(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return database.DB.WithContext(ctx).
		Model(&models.AssessmentSession{}).
		Where("id = ? AND status <> ?", id, models.SessionCompleted).
		Updates(map[string]any{"status": models.SessionCompleted, "completed_at": now}).Error
}

// StartPersonality stamps the questionnaire sub-state once; repeat calls
// keep the original timestamp.
func StartPersonality(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return database.DB.WithContext(ctx).
		Model(&models.AssessmentSession{}).
		Where("id = ? AND personality_started_at IS NULL", id).
		Update("personality_started_at", now).Error
}

// CompletePersonality stores the score summary blob and completion time.
// Safe to call again on submission retry; the summary is recomputed.
func CompletePersonality(ctx context.Context, id uuid.UUID, summary datatypes.JSON) error {
	now := time.Now().UTC()
	return database.DB.WithContext(ctx).
		Model(&models.AssessmentSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"personality_completed_at": now,
			"personality_summary":      summary,
		}).Error
}

// ResetSession is developer tooling only: it wipes responses and scores and
// returns the session to the assigned state.
func ResetSession(ctx context.Context, id uuid.UUID) error {
	db := database.DB.WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.StudentResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.PersonalityResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.PersonalityScore{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.AssessmentSession{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":                   models.SessionAssigned,
				"started_at":               nil,
				"completed_at":             nil,
				"personality_started_at":   nil,
				"personality_completed_at": nil,
				"personality_summary":      nil,
			}).Error
	})
}
