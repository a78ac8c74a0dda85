package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SessionStatus is the lifecycle state of an assessment session. Transitions
// are monotonic: assigned -> in_progress -> completed. Only the developer
// reset tooling may move a session backwards.
type SessionStatus string

const (
	SessionAssigned   SessionStatus = "assigned"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// AssessmentSession is one candidate attempt. The server owns this row
// exclusively; clients only reach it through actions.
type AssessmentSession struct {
	ID     uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Status SessionStatus `gorm:"type:varchar(20);not null;default:'assigned'"`

	// Assigned vignette ids, two per domain, in presentation order.
	PracticalVignettes pq.Int64Array `gorm:"type:integer[]"`
	CreativeVignettes  pq.Int64Array `gorm:"type:integer[]"`

	StartedAt   *time.Time
	CompletedAt *time.Time

	// Personality questionnaire sub-state.
	PersonalityStartedAt   *time.Time
	PersonalityCompletedAt *time.Time
	PersonalitySummary     datatypes.JSON

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VignetteForStep maps an assessment step (1-4) onto the assigned vignette.
// Steps 1-2 are practical, 3-4 creative.
func (s *AssessmentSession) VignetteForStep(step int) (int64, VignetteType, bool) {
	switch {
	case step >= 1 && step <= len(s.PracticalVignettes):
		return s.PracticalVignettes[step-1], VignettePractical, true
	case step > len(s.PracticalVignettes) && step <= len(s.PracticalVignettes)+len(s.CreativeVignettes):
		return s.CreativeVignettes[step-len(s.PracticalVignettes)-1], VignetteCreative, true
	default:
		return 0, "", false
	}
}

// TotalSteps is the number of vignette slots in the session.
func (s *AssessmentSession) TotalSteps() int {
	return len(s.PracticalVignettes) + len(s.CreativeVignettes)
}
