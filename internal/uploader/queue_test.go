package uploader

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vantage-go/internal/models"
)

type fakeSigner struct {
	mu   sync.Mutex
	keys []string
}

func (s *fakeSigner) SignUpload(ctx context.Context, key, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "https://signed.example/" + key, nil
}

// fakeTransport fails a configured number of attempts before succeeding.
type fakeTransport struct {
	mu        sync.Mutex
	failFirst int
	attempts  int
	bodies    [][]byte

	inFlight      atomic.Int32
	maxConcurrent atomic.Int32
	delay         time.Duration
	block         bool // never read the body, simulating a stalled connection
}

func (t *fakeTransport) Put(ctx context.Context, url, contentType string, body io.Reader, size int64) error {
	cur := t.inFlight.Add(1)
	defer t.inFlight.Add(-1)
	for {
		max := t.maxConcurrent.Load()
		if cur <= max || t.maxConcurrent.CompareAndSwap(max, cur) {
			break
		}
	}

	if t.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if t.delay > 0 {
		select {
		case <-time.After(t.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.mu.Lock()
	t.attempts++
	fail := t.attempts <= t.failFirst
	t.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.bodies = append(t.bodies, data)
	t.mu.Unlock()
	return nil
}

type fakeConfirmer struct {
	mu       sync.Mutex
	confirms []string
	failures []string
}

func (c *fakeConfirmer) ConfirmUpload(ctx context.Context, sessionID string, step, phase int, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirms = append(c.confirms, key)
	return nil
}

func (c *fakeConfirmer) MarkUploadFailed(ctx context.Context, sessionID string, step, phase int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, reason)
	return nil
}

func (t *fakeTransport) lastBody() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.bodies) == 0 {
		return nil
	}
	return t.bodies[len(t.bodies)-1]
}

func (c *fakeConfirmer) confirmCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.confirms)
}

func testConfig() Config {
	return Config{
		MaxAttempts: 5,
		BackoffBase: time.Millisecond,
		StallWindow: time.Second,
		MinTimeout:  time.Second,
		Throughput:  1 << 20,
		ExtraTime:   time.Second,
	}
}

func newTestQueue(t *testing.T, transport Transport, confirmer Confirmer) *Queue {
	t.Helper()
	q := New(testConfig(), &fakeSigner{}, transport, confirmer, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)
	return q
}

func waitForStatus(t *testing.T, q *Queue, id string, want JobStatus) Job {
	t.Helper()
	var got Job
	require.Eventually(t, func() bool {
		for _, job := range q.Jobs() {
			if job.ID == id && job.Status == want {
				got = job
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
	return got
}

// Four transient failures then success: completed with retryCount 4 and
// exactly one confirm write.
func TestRetryUntilSuccess(t *testing.T) {
	transport := &fakeTransport{failFirst: 4}
	confirmer := &fakeConfirmer{}
	q := newTestQueue(t, transport, confirmer)

	id := q.Enqueue("sess-1", models.VignettePractical, 1, 1, "webm", []byte("media-bytes"))

	job := waitForStatus(t, q, id, JobCompleted)
	require.Equal(t, 4, job.Retries)
	require.Equal(t, float64(100), job.Progress)
	require.Equal(t, 1, confirmer.confirmCount())
	require.Equal(t, []byte("media-bytes"), transport.lastBody())
	require.Empty(t, confirmer.failures)
}

func TestDeterministicIDReplacesJob(t *testing.T) {
	transport := &fakeTransport{}
	q := New(testConfig(), &fakeSigner{}, transport, &fakeConfirmer{}, zap.NewNop())

	first := q.Enqueue("sess-1", models.VignetteCreative, 3, 1, "webm", []byte("v1"))
	second := q.Enqueue("sess-1", models.VignetteCreative, 3, 1, "webm", []byte("v2"))

	require.Equal(t, first, second)
	require.Len(t, q.Jobs(), 1)
	require.Equal(t, int64(2), q.Jobs()[0].Size)
}

func TestSingleTransferInFlight(t *testing.T) {
	transport := &fakeTransport{delay: 20 * time.Millisecond}
	confirmer := &fakeConfirmer{}
	q := newTestQueue(t, transport, confirmer)

	a := q.Enqueue("sess-1", models.VignettePractical, 1, 1, "webm", []byte("aaaa"))
	b := q.Enqueue("sess-1", models.VignettePractical, 2, 1, "webm", []byte("bbbb"))

	waitForStatus(t, q, a, JobCompleted)
	waitForStatus(t, q, b, JobCompleted)

	require.Equal(t, int32(1), transport.maxConcurrent.Load(), "transfers must be serialized")
	require.True(t, q.AllComplete())
	require.False(t, q.AnyPending())
}

// Ceiling exhaustion marks the job failed server-side and does not block the
// next queued job.
func TestExhaustedRetriesDoNotBlockQueue(t *testing.T) {
	transport := &fakeTransport{failFirst: 1 << 30}
	confirmer := &fakeConfirmer{}
	cfg := testConfig()
	cfg.MaxAttempts = 3
	q := New(cfg, &fakeSigner{}, transport, confirmer, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)

	bad := q.Enqueue("sess-1", models.VignettePractical, 1, 1, "webm", []byte("doomed"))
	job := waitForStatus(t, q, bad, JobFailed)
	require.Equal(t, 3, job.Retries)
	require.Contains(t, job.Error, "after 3 attempts")
	require.Len(t, confirmer.failures, 1)
	require.Zero(t, confirmer.confirmCount())

	// A later job still goes through.
	transport.mu.Lock()
	transport.failFirst = transport.attempts
	transport.mu.Unlock()
	good := q.Enqueue("sess-1", models.VignettePractical, 2, 1, "webm", []byte("fine"))
	waitForStatus(t, q, good, JobCompleted)

	require.False(t, q.AllComplete())
	require.Len(t, q.FailedJobs(), 1)
}

func TestManualRetryReusesPayload(t *testing.T) {
	transport := &fakeTransport{failFirst: 1 << 30}
	confirmer := &fakeConfirmer{}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	q := New(cfg, &fakeSigner{}, transport, confirmer, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)

	id := q.Enqueue("sess-9", models.VignetteCreative, 4, 1, "webm", []byte("keep-me"))
	waitForStatus(t, q, id, JobFailed)

	// Retrying a non-failed job is rejected.
	require.Error(t, q.Retry("nope"))

	transport.mu.Lock()
	transport.failFirst = transport.attempts
	transport.mu.Unlock()
	require.NoError(t, q.Retry(id))

	job := waitForStatus(t, q, id, JobCompleted)
	require.Zero(t, job.Retries)
	require.Equal(t, []byte("keep-me"), transport.lastBody())
	require.Equal(t, 1, confirmer.confirmCount())
}

// A transfer producing no progress events within the stall window is
// aborted and retried.
func TestStallDetectionAbortsAttempt(t *testing.T) {
	transport := &fakeTransport{block: true}
	confirmer := &fakeConfirmer{}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	cfg.StallWindow = 40 * time.Millisecond
	q := New(cfg, &fakeSigner{}, transport, confirmer, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)

	id := q.Enqueue("sess-1", models.VignettePractical, 1, 1, "webm", []byte("stalled"))
	job := waitForStatus(t, q, id, JobFailed)
	require.Equal(t, 2, job.Retries)
	require.Len(t, confirmer.failures, 1)
}

func TestTimeoutSizing(t *testing.T) {
	q := New(Config{MinTimeout: 30 * time.Second, Throughput: 64 * 1024, ExtraTime: 10 * time.Second},
		&fakeSigner{}, &fakeTransport{}, &fakeConfirmer{}, zap.NewNop())

	// Small payloads sit on the floor.
	require.Equal(t, 30*time.Second, q.timeoutFor(1024))

	// 64 MiB at 64 KiB/s is 1024s plus the fixed buffer.
	require.Equal(t, 1034*time.Second, q.timeoutFor(64<<20))
}

func TestEmptyQueuePredicates(t *testing.T) {
	q := New(testConfig(), &fakeSigner{}, &fakeTransport{}, &fakeConfirmer{}, zap.NewNop())
	require.True(t, q.AllComplete())
	require.False(t, q.AnyPending())
	require.Empty(t, q.FailedJobs())
	require.Empty(t, q.Jobs())
}
