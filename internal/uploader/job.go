package uploader

import (
	"fmt"
	"time"

	"vantage-go/internal/models"
	"vantage-go/internal/storage"
)

// JobStatus is the lifecycle of one media transfer.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobUploading JobStatus = "uploading"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one outstanding media transfer. Jobs live only in the queue's
// memory plus a parallel blob map; losing them on shutdown is an accepted
// failure mode because the server-side reservation already unblocked the
// candidate's progression.
type Job struct {
	ID           string
	SessionID    string
	VignetteType models.VignetteType
	Step         int
	Phase        int
	Ext          string
	Size         int64

	Status   JobStatus
	Progress float64 // 0-100
	Retries  int     // failed attempts so far
	Error    string

	EnqueuedAt time.Time
}

// JobID is the deterministic composite key for a transfer slot. Re-enqueuing
// the same slot replaces the existing job rather than duplicating it.
func JobID(sessionID string, vt models.VignetteType, step, phase int) string {
	return fmt.Sprintf("%s:%s:%d:%d", sessionID, vt, step, phase)
}

// Key is the object-storage path the job uploads to.
func (j *Job) Key() string {
	return storage.ResponseKey(j.SessionID, j.VignetteType, j.Step, j.Phase, j.Ext)
}

// ContentType maps the recording container onto a MIME type.
func (j *Job) ContentType() string {
	switch j.Ext {
	case "mp4":
		return "video/mp4"
	default:
		return "video/webm"
	}
}
