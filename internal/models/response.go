package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// VignetteType is the assessment domain a vignette belongs to.
type VignetteType string

const (
	VignettePractical VignetteType = "practical"
	VignetteCreative  VignetteType = "creative"
)

// UploadStatus tracks the media transfer for a response row. It is
// independent of step completion: a step counts as done once
// ResponseSubmittedAt is set, whatever the upload status says.
type UploadStatus string

const (
	UploadPending  UploadStatus = "pending"
	UploadUploaded UploadStatus = "uploaded"
	UploadFailed   UploadStatus = "failed"
)

// StudentResponse is one row per (session, step, phase). The row is upserted
// as a placeholder when the vignette is served; Reserve stamps
// ResponseSubmittedAt, and Confirm fills in the storage path once the media
// transfer lands.
type StudentResponse struct {
	ID           uint         `gorm:"primaryKey"`
	SessionID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_response_key,priority:1"`
	VignetteID   int64        `gorm:"not null"`
	VignetteType VignetteType `gorm:"type:varchar(10);not null"`
	Step         int          `gorm:"not null;uniqueIndex:idx_response_key,priority:2"`
	Phase        int          `gorm:"not null;uniqueIndex:idx_response_key,priority:3"`

	VideoPath       *string
	UploadStatus    UploadStatus `gorm:"type:varchar(10)"`
	DurationSeconds float64

	ServedAt            *time.Time
	ResponseStartedAt   *time.Time
	ResponseSubmittedAt *time.Time

	// NeedsScoring is flipped true at Confirm so the external scoring
	// pipeline's polling picks the row up; the pipeline writes back
	// ScoringResult out of band.
	NeedsScoring  bool
	ScoringResult datatypes.JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Submitted reports whether this response counts towards step completion.
func (r *StudentResponse) Submitted() bool {
	return r.ResponseSubmittedAt != nil
}
