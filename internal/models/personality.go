package models

import (
	"time"

	"github.com/google/uuid"
)

// PersonalityResponse is one Likert answer per (session, item). Upserted
// idempotently; re-answering an item replaces the previous value.
type PersonalityResponse struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_personality_key,priority:1"`
	ItemID    string    `gorm:"not null;uniqueIndex:idx_personality_key,priority:2"`
	Facet     string    `gorm:"not null"`
	RawValue  int       `gorm:"not null"`
	Reverse   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PersonalityScore is one derived row per (session, facet). Never hand
// edited; recomputed by upsert when submission is retried.
type PersonalityScore struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_score_key,priority:1"`
	Facet     string    `gorm:"not null;uniqueIndex:idx_score_key,priority:2"`
	ItemCount int       `gorm:"not null"`
	RawMean   float64   `gorm:"not null"`
	Score     float64   `gorm:"not null"` // rescaled 0-100
	CreatedAt time.Time
	UpdatedAt time.Time
}
