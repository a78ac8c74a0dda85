// Package recording drives one vignette step through its strict phase
// sequence: ready -> narrating -> buffer -> recording -> uploading ->
// transitioning, with a terminal error phase reachable from any non-terminal
// phase and a retry path from error back into uploading. A failed upload
// never re-records.
package recording

// Phase is the closed set of states for one vignette step.
type Phase int

const (
	PhaseReady Phase = iota
	PhaseNarrating
	PhaseBuffer
	PhaseRecording
	PhaseUploading
	PhaseTransitioning
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseNarrating:
		return "narrating"
	case PhaseBuffer:
		return "buffer"
	case PhaseRecording:
		return "recording"
	case PhaseUploading:
		return "uploading"
	case PhaseTransitioning:
		return "transitioning"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of one step's recording flow. Transitions
// return a fresh State; a transition applied from the wrong source phase is
// a no-op that returns the receiver unchanged, so duplicate events from
// overlapping timers and async callbacks cannot corrupt the flow. Callers
// can detect the no-op by pointer identity.
type State struct {
	Phase  Phase
	Step   int
	ErrMsg string
}

// NewState returns the initial ready state for a step.
func NewState(step int) *State {
	return &State{Phase: PhaseReady, Step: step}
}

func (s *State) transition(from, to Phase) *State {
	if s.Phase != from {
		return s
	}
	return &State{Phase: to, Step: s.Step}
}

// StartNarration moves ready -> narrating.
func (s *State) StartNarration() *State {
	return s.transition(PhaseReady, PhaseNarrating)
}

// NarrationFinished moves narrating -> buffer.
func (s *State) NarrationFinished() *State {
	return s.transition(PhaseNarrating, PhaseBuffer)
}

// BufferElapsed moves buffer -> recording when the countdown hits zero.
func (s *State) BufferElapsed() *State {
	return s.transition(PhaseBuffer, PhaseRecording)
}

// RecordingStopped moves recording -> uploading, whether the stop came from
// the user, the max-duration timer or a recorder failure with partial data.
func (s *State) RecordingStopped() *State {
	return s.transition(PhaseRecording, PhaseUploading)
}

// UploadSucceeded moves uploading -> transitioning.
func (s *State) UploadSucceeded() *State {
	return s.transition(PhaseUploading, PhaseTransitioning)
}

// UploadFailed moves uploading -> error with a user-facing message. The
// local recording is retained so the user can retry the upload without
// re-recording.
func (s *State) UploadFailed(msg string) *State {
	if s.Phase != PhaseUploading {
		return s
	}
	return &State{Phase: PhaseError, Step: s.Step, ErrMsg: msg}
}

// Fail moves any non-terminal phase into error. Transitioning and error
// itself are unaffected.
func (s *State) Fail(msg string) *State {
	if s.Phase == PhaseError || s.Phase == PhaseTransitioning {
		return s
	}
	return &State{Phase: PhaseError, Step: s.Step, ErrMsg: msg}
}

// RetryUpload moves error -> uploading: a retry re-attempts the transfer,
// never the recording.
func (s *State) RetryUpload() *State {
	return s.transition(PhaseError, PhaseUploading)
}
