package recording

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Chunk is one timestamped slice of captured media.
type Chunk struct {
	Data []byte
	At   time.Time
}

// MediaRecorder abstracts the platform capture API. Start may fail when
// camera or microphone access is denied; the chunk channel closes once the
// recorder stops or dies. A recorder error after Start is delivered on the
// error channel and still counts as a valid end of recording; whatever was
// captured so far is kept.
type MediaRecorder interface {
	Start(ctx context.Context) (<-chan Chunk, <-chan error, error)
	Stop() error
}

// Narrator plays or reveals the scenario, returning when narration is done.
type Narrator interface {
	Play(ctx context.Context) error
}

// Config holds the step timings.
type Config struct {
	BufferWait  time.Duration // thinking time between narration and recording
	MinDuration time.Duration // earliest point the user may stop
	MaxDuration time.Duration // hard auto-stop
}

// Result is the captured media handed off to the upload pipeline. Partial
// marks recordings cut short by a recorder failure.
type Result struct {
	Data     []byte
	Duration time.Duration
	Partial  bool
}

// ErrPermissionDenied wraps capture-acquisition failures. These are terminal
// for the attempt and never retried automatically.
var ErrPermissionDenied = errors.New("media capture unavailable")

// Controller runs one step's phase sequence on a single goroutine. All
// timer, recorder and user events funnel through the Run loop, so event
// ordering races (a stop action and the max-duration timer firing together)
// collapse into guarded transitions on State.
type Controller struct {
	cfg      Config
	narrator Narrator
	recorder MediaRecorder
	log      *zap.Logger

	mu    sync.Mutex
	state *State

	done chan struct{} // user "I'm done" signal
	once sync.Once
}

// NewController builds a controller in the ready phase.
func NewController(step int, cfg Config, narrator Narrator, recorder MediaRecorder, log *zap.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		narrator: narrator,
		recorder: recorder,
		log:      log,
		state:    NewState(step),
		done:     make(chan struct{}),
	}
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) apply(next func(*State) *State) *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = next(c.state)
	return c.state
}

// Done signals that the candidate finished speaking. Honored only once the
// minimum recording duration has elapsed; safe to call from any goroutine
// and idempotent.
func (c *Controller) Done() {
	c.once.Do(func() { close(c.done) })
}

// Run walks narration, buffer and recording, returning the captured media.
// The caller reserves the response row and enqueues the upload, then settles
// the state with UploadSucceeded/UploadFailed. Run returns an error only for
// failures that leave nothing to upload.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	c.apply((*State).StartNarration)
	if err := c.narrator.Play(ctx); err != nil {
		c.apply(func(s *State) *State { return s.Fail("narration failed") })
		return Result{}, err
	}
	c.apply((*State).NarrationFinished)

	select {
	case <-time.After(c.cfg.BufferWait):
	case <-ctx.Done():
		c.apply(func(s *State) *State { return s.Fail("cancelled") })
		return Result{}, ctx.Err()
	}
	c.apply((*State).BufferElapsed)

	chunks, recErrs, err := c.recorder.Start(ctx)
	if err != nil {
		c.apply(func(s *State) *State { return s.Fail("camera or microphone unavailable") })
		return Result{}, errors.Join(ErrPermissionDenied, err)
	}

	started := time.Now()
	maxTimer := time.NewTimer(c.cfg.MaxDuration)
	defer maxTimer.Stop()

	var data []byte
	partial := false

	// The user stop signal is only honored after the minimum duration; an
	// early signal re-arms as a timer for the remaining time.
	doneCh := c.done
	var minWait <-chan time.Time

collect:
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				break collect
			}
			data = append(data, chunk.Data...)

		case err := <-recErrs:
			// Hardware disconnect mid-recording: a valid way to end.
			// Partial data is uploaded rather than discarded.
			c.log.Warn("recorder failed mid-recording, keeping partial data",
				zap.Int("step", c.state.Step), zap.Error(err))
			partial = true
			_ = c.recorder.Stop()
			data = append(data, drain(chunks)...)
			break collect

		case <-doneCh:
			if remaining := c.cfg.MinDuration - time.Since(started); remaining > 0 {
				doneCh = nil
				timer := time.NewTimer(remaining)
				defer timer.Stop()
				minWait = timer.C
				continue
			}
			if err := c.recorder.Stop(); err != nil {
				partial = true
			}
			data = append(data, drain(chunks)...)
			break collect

		case <-minWait:
			if err := c.recorder.Stop(); err != nil {
				partial = true
			}
			data = append(data, drain(chunks)...)
			break collect

		case <-maxTimer.C:
			if err := c.recorder.Stop(); err != nil {
				partial = true
			}
			data = append(data, drain(chunks)...)
			break collect

		case <-ctx.Done():
			_ = c.recorder.Stop()
			c.apply(func(s *State) *State { return s.Fail("cancelled") })
			return Result{}, ctx.Err()
		}
	}

	duration := time.Since(started)
	if len(data) == 0 && !partial {
		c.apply(func(s *State) *State { return s.Fail("no media captured") })
		return Result{}, errors.New("recorder produced no data")
	}

	c.apply((*State).RecordingStopped)
	return Result{Data: data, Duration: duration, Partial: partial}, nil
}

// drain collects whatever chunks are already buffered after a stop.
func drain(chunks <-chan Chunk) []byte {
	var out []byte
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return out
			}
			out = append(out, chunk.Data...)
		default:
			return out
		}
	}
}
