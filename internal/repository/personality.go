package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"vantage-go/internal/database"
	"vantage-go/internal/models"
)

// UpsertPersonalityResponse saves one Likert answer idempotently: answering
// an item again replaces the previous value.
func UpsertPersonalityResponse(ctx context.Context, sessionID uuid.UUID, itemID, facet string, rawValue int, reverse bool) error {
	row := models.PersonalityResponse{
		SessionID: sessionID,
		ItemID:    itemID,
		Facet:     facet,
		RawValue:  rawValue,
		Reverse:   reverse,
	}
	return database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"raw_value":  rawValue,
				"reverse":    reverse,
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(&row).Error
}

// GetPersonalityResponses returns every saved answer for a session.
func GetPersonalityResponses(ctx context.Context, sessionID uuid.UUID) ([]models.PersonalityResponse, error) {
	var rows []models.PersonalityResponse
	err := database.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&rows).Error
	return rows, err
}

// UpsertPersonalityScores writes the derived per-facet rows, replacing any
// previous computation for the same session.
func UpsertPersonalityScores(ctx context.Context, scores []models.PersonalityScore) error {
	if len(scores) == 0 {
		return nil
	}
	return database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "facet"}},
			DoUpdates: clause.AssignmentColumns([]string{"item_count", "raw_mean", "score", "updated_at"}),
		}).
		Create(&scores).Error
}

// GetPersonalityScores returns the derived facet rows for a session.
func GetPersonalityScores(ctx context.Context, sessionID uuid.UUID) ([]models.PersonalityScore, error) {
	var rows []models.PersonalityScore
	err := database.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("facet").
		Find(&rows).Error
	return rows, err
}
