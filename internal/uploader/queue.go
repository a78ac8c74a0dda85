// Package uploader is the durable background job queue that drives recorded
// media through the two-phase reserve/confirm protocol. Reservation (phase
// 1) happens at the action boundary before a job is enqueued; the queue owns
// the background transfer and the confirm write. A single sequential worker
// transfers one job at a time; queued jobs wait.
package uploader

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"vantage-go/internal/models"
)

// TargetSigner issues the presigned upload URL for a job. storage.Signer
// satisfies it.
type TargetSigner interface {
	SignUpload(ctx context.Context, key, contentType string) (string, error)
}

// Confirmer performs the server-side writes that bracket a transfer: the
// confirm update on success and the operator-visibility failure mark once
// retries are exhausted.
type Confirmer interface {
	ConfirmUpload(ctx context.Context, sessionID string, step, phase int, key string) error
	MarkUploadFailed(ctx context.Context, sessionID string, step, phase int, reason string) error
}

// Config tunes retries, stall detection and timeout sizing.
type Config struct {
	MaxAttempts int           // total transfer attempts per job
	BackoffBase time.Duration // first retry delay, doubling each retry
	StallWindow time.Duration // abort if no progress event arrives within it
	MinTimeout  time.Duration // floor for the per-attempt timeout
	Throughput  int64         // assumed worst-case bytes/sec for timeout sizing
	ExtraTime   time.Duration // fixed buffer added on top of the size-based timeout
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.StallWindow <= 0 {
		c.StallWindow = 15 * time.Second
	}
	if c.MinTimeout <= 0 {
		c.MinTimeout = 30 * time.Second
	}
	if c.Throughput <= 0 {
		c.Throughput = 64 * 1024
	}
	if c.ExtraTime <= 0 {
		c.ExtraTime = 10 * time.Second
	}
	return c
}

// Queue owns all upload state behind one mutex; the single in-flight
// transfer constraint is a weighted semaphore of size 1 around the worker.
type Queue struct {
	log       *zap.Logger
	cfg       Config
	signer    TargetSigner
	transport Transport
	confirmer Confirmer
	sem       *semaphore.Weighted

	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
	blobs map[string][]byte

	wake chan struct{}
}

// New builds a queue; call Start to launch the worker.
func New(cfg Config, signer TargetSigner, transport Transport, confirmer Confirmer, log *zap.Logger) *Queue {
	return &Queue{
		log:       log,
		cfg:       cfg.withDefaults(),
		signer:    signer,
		transport: transport,
		confirmer: confirmer,
		sem:       semaphore.NewWeighted(1),
		jobs:      make(map[string]*Job),
		blobs:     make(map[string][]byte),
		wake:      make(chan struct{}, 1),
	}
}

// Start launches the sequential worker. It returns immediately; the worker
// runs until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go q.run(ctx)
}

// Enqueue registers a transfer for a reserved response slot. The job id is
// the deterministic composite key, so enqueueing an already-known slot
// replaces the previous job and payload instead of duplicating it.
func (q *Queue) Enqueue(sessionID string, vt models.VignetteType, step, phase int, ext string, blob []byte) string {
	id := JobID(sessionID, vt, step, phase)

	q.mu.Lock()
	if _, exists := q.jobs[id]; !exists {
		q.order = append(q.order, id)
	}
	q.jobs[id] = &Job{
		ID:           id,
		SessionID:    sessionID,
		VignetteType: vt,
		Step:         step,
		Phase:        phase,
		Ext:          ext,
		Size:         int64(len(blob)),
		Status:       JobQueued,
		EnqueuedAt:   time.Now(),
	}
	q.blobs[id] = blob
	q.mu.Unlock()

	q.signal()
	return id
}

// Retry requeues a failed job for another round of attempts, reusing the
// retained payload.
func (q *Queue) Retry(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return fmt.Errorf("unknown upload job %q", id)
	}
	if job.Status != JobFailed {
		return fmt.Errorf("upload job %q is %s, only failed jobs can be retried", id, job.Status)
	}
	if _, ok := q.blobs[id]; !ok {
		return fmt.Errorf("payload for upload job %q is no longer available", id)
	}

	job.Status = JobQueued
	job.Progress = 0
	job.Retries = 0
	job.Error = ""
	q.signal()
	return nil
}

// Jobs returns a snapshot of all jobs in enqueue order.
func (q *Queue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.jobs[id])
	}
	return out
}

// AnyPending reports whether any job is still queued or transferring.
func (q *Queue) AnyPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range q.jobs {
		if job.Status == JobQueued || job.Status == JobUploading {
			return true
		}
	}
	return false
}

// AllComplete reports whether every known job has finished successfully.
func (q *Queue) AllComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range q.jobs {
		if job.Status != JobCompleted {
			return false
		}
	}
	return true
}

// FailedJobs returns the jobs whose retry ceiling was exhausted.
func (q *Queue) FailedJobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Job
	for _, id := range q.order {
		if job := q.jobs[id]; job.Status == JobFailed {
			out = append(out, *job)
		}
	}
	return out
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}

		for {
			id, blob := q.nextQueued()
			if id == "" {
				break
			}
			if err := q.sem.Acquire(ctx, 1); err != nil {
				return
			}
			q.process(ctx, id, blob)
			q.sem.Release(1)
		}
	}
}

func (q *Queue) nextQueued() (string, []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range q.order {
		if q.jobs[id].Status == JobQueued {
			return id, q.blobs[id]
		}
	}
	return "", nil
}

// process drives one job through its attempt loop until success or the
// retry ceiling. A job exhausting its ceiling never blocks later jobs.
func (q *Queue) process(ctx context.Context, id string, blob []byte) {
	job := q.snapshot(id)
	if job == nil {
		return
	}
	log := q.log.With(zap.String("job", id), zap.Int64("size", int64(len(blob))))

	for attempt := 1; ; attempt++ {
		q.update(id, func(j *Job) {
			j.Status = JobUploading
			j.Progress = 0
			j.Error = ""
		})

		err := q.attempt(ctx, job, blob)
		if err == nil {
			if err = q.confirmer.ConfirmUpload(ctx, job.SessionID, job.Step, job.Phase, job.Key()); err == nil {
				q.update(id, func(j *Job) {
					j.Status = JobCompleted
					j.Progress = 100
				})
				log.Info("upload completed", zap.Int("attempt", attempt))
				return
			}
		}

		q.update(id, func(j *Job) { j.Retries = attempt })
		log.Warn("upload attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt >= q.cfg.MaxAttempts {
			msg := fmt.Sprintf("upload failed after %d attempts: %v", attempt, err)
			q.update(id, func(j *Job) {
				j.Status = JobFailed
				j.Error = msg
			})
			if markErr := q.confirmer.MarkUploadFailed(ctx, job.SessionID, job.Step, job.Phase, msg); markErr != nil {
				log.Error("failed to record upload failure", zap.Error(markErr))
			}
			return
		}

		// Exponential backoff before the next attempt.
		delay := q.cfg.BackoffBase << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// attempt performs one signed transfer with stall detection and a timeout
// sized from the payload: large recordings get proportionally more time,
// never less than the floor.
func (q *Queue) attempt(ctx context.Context, job *Job, blob []byte) error {
	timeout := q.timeoutFor(int64(len(blob)))
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url, err := q.signer.SignUpload(actx, job.Key(), job.ContentType())
	if err != nil {
		return fmt.Errorf("failed to obtain upload target: %w", err)
	}

	var lastProgress atomic.Int64
	lastProgress.Store(time.Now().UnixNano())

	watchStop := make(chan struct{})
	defer close(watchStop)
	go func() {
		ticker := time.NewTicker(q.cfg.StallWindow / 4)
		defer ticker.Stop()
		for {
			select {
			case <-watchStop:
				return
			case <-actx.Done():
				return
			case <-ticker.C:
				last := time.Unix(0, lastProgress.Load())
				if time.Since(last) > q.cfg.StallWindow {
					q.log.Warn("upload stalled, aborting attempt", zap.String("job", job.ID))
					cancel()
					return
				}
			}
		}
	}()

	total := int64(len(blob))
	body := &progressReader{
		r: bytes.NewReader(blob),
		onProgress: func(sent int64) {
			lastProgress.Store(time.Now().UnixNano())
			if total > 0 {
				q.update(job.ID, func(j *Job) { j.Progress = float64(sent) / float64(total) * 100 })
			}
		},
	}

	return q.transport.Put(actx, url, job.ContentType(), body, total)
}

func (q *Queue) timeoutFor(size int64) time.Duration {
	timeout := time.Duration(size/q.cfg.Throughput)*time.Second + q.cfg.ExtraTime
	if timeout < q.cfg.MinTimeout {
		timeout = q.cfg.MinTimeout
	}
	return timeout
}

func (q *Queue) snapshot(id string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.jobs[id]; ok {
		copied := *job
		return &copied
	}
	return nil
}

func (q *Queue) update(id string, fn func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.jobs[id]; ok {
		fn(job)
	}
}
