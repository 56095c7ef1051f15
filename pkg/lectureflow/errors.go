package lectureflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for thread and graph structure.
var (
	// ErrInvalidPosition indicates a slide position outside the thread's range.
	ErrInvalidPosition = errors.New("position out of range")

	// ErrSlideNotFound indicates no slide exists at the requested position.
	ErrSlideNotFound = errors.New("slide not found")

	// ErrThreadNotFound indicates the referenced thread does not exist
	// or has been archived out of active navigation.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrNoOpAdvance indicates no cached slide exists past the cursor,
	// so advancing requires generation.
	ErrNoOpAdvance = errors.New("no next slide cached")

	// ErrAtStart indicates the cursor is already at position 0.
	ErrAtStart = errors.New("already at first slide")

	// ErrNotInDetour indicates a return was requested while the main
	// thread is active.
	ErrNotInDetour = errors.New("active thread is not a detour")

	// ErrNoActiveQuiz indicates a quiz answer arrived while the cursor is
	// not on a quiz slide.
	ErrNoActiveQuiz = errors.New("no quiz in progress")

	// ErrEmptyThread indicates the thread has no slides yet.
	ErrEmptyThread = errors.New("thread has no slides")
)

// Sentinel errors for sessions and dispatch.
var (
	// ErrSessionNotFound indicates the session id is unknown to the
	// service and to the persistence store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy indicates another operation is in flight for the
	// session. Callers should retry shortly; state is unchanged.
	ErrSessionBusy = errors.New("session has an operation in flight")

	// ErrSessionClosed indicates the session has been archived.
	ErrSessionClosed = errors.New("session closed")

	// ErrStaleOperation indicates a gateway completion arrived after the
	// operation was superseded. The result is discarded, never applied.
	ErrStaleOperation = errors.New("operation superseded")

	// ErrUnsupportedAction indicates an unknown action name.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrMissingParameter indicates a required action parameter is absent.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrGenerationFailed indicates the generation gateway failed or
	// timed out. Not retried automatically; callers may resubmit.
	ErrGenerationFailed = errors.New("content generation failed")

	// ErrEmptyTopic indicates a session start without a topic.
	ErrEmptyTopic = errors.New("topic cannot be empty")
)

// Sentinel errors for snapshots.
var (
	// ErrSnapshotVersionMismatch indicates an incompatible snapshot format.
	ErrSnapshotVersionMismatch = errors.New("snapshot version mismatch")
)

// GenerationError wraps a gateway failure with the operation that
// triggered it. The originating cause is always attached; the engine
// never substitutes placeholder content.
type GenerationError struct {
	// Op is the synthesizer operation that failed (e.g. "slide", "outline").
	Op string
	// Cause is the underlying gateway or parse error.
	Cause error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Op, e.Cause)
}

// Unwrap supports errors.Is for both ErrGenerationFailed and the cause.
func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationFailed, e.Cause}
}

// PositionError reports an out-of-range slide position.
type PositionError struct {
	// ThreadID is the thread that was indexed.
	ThreadID string
	// Position is the requested position.
	Position int
	// Length is the thread's slide count at the time of the request.
	Length int
}

// Error implements the error interface.
func (e *PositionError) Error() string {
	return fmt.Sprintf("thread %s: position %d out of range [0,%d)", e.ThreadID, e.Position, e.Length)
}

// Unwrap returns ErrInvalidPosition for errors.Is support.
func (e *PositionError) Unwrap() error {
	return ErrInvalidPosition
}

// UnsupportedActionError reports an action name outside the dispatch table.
type UnsupportedActionError struct {
	// Action is the name that failed to resolve.
	Action string
}

// Error implements the error interface.
func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported action: %s", e.Action)
}

// Unwrap returns ErrUnsupportedAction for errors.Is support.
func (e *UnsupportedActionError) Unwrap() error {
	return ErrUnsupportedAction
}

// MissingParameterError reports a required parameter absent from an action.
type MissingParameterError struct {
	// Action is the action being dispatched.
	Action string
	// Param is the missing parameter name.
	Param string
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("action %s: missing required parameter %q", e.Action, e.Param)
}

// Unwrap returns ErrMissingParameter for errors.Is support.
func (e *MissingParameterError) Unwrap() error {
	return ErrMissingParameter
}
