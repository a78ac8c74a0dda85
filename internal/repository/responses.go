package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"vantage-go/internal/database"
	"vantage-go/internal/models"
)

// UpsertServedResponse materializes the placeholder row when a vignette is
// served. Re-serving the same step only refreshes the served timestamp.
func UpsertServedResponse(ctx context.Context, sessionID uuid.UUID, vignetteID int64, vt models.VignetteType, step, phase int) error {
	now := time.Now().UTC()
	row := models.StudentResponse{
		SessionID:    sessionID,
		VignetteID:   vignetteID,
		VignetteType: vt,
		Step:         step,
		Phase:        phase,
		ServedAt:     &now,
	}
	return database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "step"}, {Name: "phase"}},
			DoUpdates: clause.Assignments(map[string]any{"served_at": now}),
		}).
		Create(&row).Error
}

// ReserveResponse is phase 1 of the upload protocol: it stamps the
// submission time and marks the upload pending. From this write onward the
// step counts as done for progression, whatever happens to the media.
func ReserveResponse(ctx context.Context, sessionID uuid.UUID, step, phase int, durationSeconds float64) error {
	now := time.Now().UTC()
	result := database.DB.WithContext(ctx).
		Model(&models.StudentResponse{}).
		Where("session_id = ? AND step = ? AND phase = ?", sessionID, step, phase).
		Updates(map[string]any{
			"response_submitted_at": now,
			"upload_status":         models.UploadPending,
			"duration_seconds":      durationSeconds,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no response row for session %s step %d phase %d", sessionID, step, phase)
	}
	return nil
}

// MarkResponseStarted stamps when the candidate began recording.
func MarkResponseStarted(ctx context.Context, sessionID uuid.UUID, step, phase int) error {
	now := time.Now().UTC()
	return database.DB.WithContext(ctx).
		Model(&models.StudentResponse{}).
		Where("session_id = ? AND step = ? AND phase = ? AND response_started_at IS NULL", sessionID, step, phase).
		Update("response_started_at", now).Error
}

// ConfirmUploadedResponse is phase 3: the media is durably stored, so the
// row gets its storage path and the needs_scoring flag the external pipeline
// polls for.
func ConfirmUploadedResponse(ctx context.Context, sessionID uuid.UUID, step, phase int, videoPath string) error {
	return database.DB.WithContext(ctx).
		Model(&models.StudentResponse{}).
		Where("session_id = ? AND step = ? AND phase = ?", sessionID, step, phase).
		Updates(map[string]any{
			"video_path":    videoPath,
			"upload_status": models.UploadUploaded,
			"needs_scoring": true,
		}).Error
}

// MarkResponseUploadFailed records an exhausted transfer for operator
// visibility. The step stays complete; only the media is missing.
func MarkResponseUploadFailed(ctx context.Context, sessionID uuid.UUID, step, phase int) error {
	return database.DB.WithContext(ctx).
		Model(&models.StudentResponse{}).
		Where("session_id = ? AND step = ? AND phase = ?", sessionID, step, phase).
		Update("upload_status", models.UploadFailed).Error
}

// GetResponses returns all response rows for a session ordered by step.
func GetResponses(ctx context.Context, sessionID uuid.UUID) ([]models.StudentResponse, error) {
	var rows []models.StudentResponse
	err := database.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("step, phase").
		Find(&rows).Error
	return rows, err
}

// GetScoredResponses returns the rows the external pipeline has written a
// scoring result onto.
func GetScoredResponses(ctx context.Context, sessionID uuid.UUID) ([]models.StudentResponse, error) {
	var rows []models.StudentResponse
	err := database.DB.WithContext(ctx).
		Where("session_id = ? AND scoring_result IS NOT NULL", sessionID).
		Order("step, phase").
		Find(&rows).Error
	return rows, err
}

// StalePendingResponses finds reservations whose media never arrived within
// the cutoff, for the sweeper.
func StalePendingResponses(ctx context.Context, olderThan time.Time) ([]models.StudentResponse, error) {
	var rows []models.StudentResponse
	err := database.DB.WithContext(ctx).
		Where("upload_status = ? AND response_submitted_at < ?", models.UploadPending, olderThan).
		Find(&rows).Error
	return rows, err
}

// UploadWrites adapts the repository to the upload queue's Confirmer
// interface, translating the queue's string session ids.
type UploadWrites struct{}

func (UploadWrites) ConfirmUpload(ctx context.Context, sessionID string, step, phase int, key string) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}
	return ConfirmUploadedResponse(ctx, id, step, phase, key)
}

func (UploadWrites) MarkUploadFailed(ctx context.Context, sessionID string, step, phase int, reason string) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}
	return MarkResponseUploadFailed(ctx, id, step, phase)
}
