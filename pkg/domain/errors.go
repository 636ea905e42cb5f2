package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrSnapshotNotFound is returned when a saved state cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrInputRejected is returned to callers awaiting an Input that the InputFilter rejected.
var ErrInputRejected = errors.New("input rejected by filter")

// ErrInputDropped is returned when an Input was discarded by the queue overflow policy.
var ErrInputDropped = errors.New("input dropped by queue overflow")

// ErrInputCancelled is returned to callers awaiting an Input whose processing was cancelled.
// It wraps context.Canceled so errors.Is(err, context.Canceled) holds.
var ErrInputCancelled = fmt.Errorf("input cancelled: %w", context.Canceled)

// UsageCode categorizes misuse of a handler scope.
type UsageCode string

const (
	// UsageScopeClosed: the scope was used after the Input finished processing.
	UsageScopeClosed UsageCode = "SCOPE_CLOSED"

	// UsageStateAfterSideJob: state was read or written after a side-job was registered.
	UsageStateAfterSideJob UsageCode = "STATE_AFTER_SIDE_JOB"

	// UsageEventAfterSideJob: an event or no-op was posted after a side-job was registered.
	UsageEventAfterSideJob UsageCode = "EVENT_AFTER_SIDE_JOB"

	// UsageNotHandled: the handler returned without touching state, events, side-jobs or NoOp.
	UsageNotHandled UsageCode = "NOT_HANDLED"

	// UsageAlreadyClosed: the scope was closed twice.
	UsageAlreadyClosed UsageCode = "ALREADY_CLOSED"
)

// UsageError reports a programming error inside an Input handler.
// It is never retried and never stops the ViewModel.
type UsageError struct {
	Code UsageCode
	Op   string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	switch e.Code {
	case UsageScopeClosed:
		return fmt.Sprintf("%s: %s called on a closed handler scope", e.Code, e.Op)
	case UsageStateAfterSideJob:
		return fmt.Sprintf("%s: %s is not allowed after a side-job was started; side-jobs must be the last statements of a handler", e.Code, e.Op)
	case UsageEventAfterSideJob:
		return fmt.Sprintf("%s: %s is not allowed after a side-job was started; side-jobs must be the last statements of a handler", e.Code, e.Op)
	case UsageNotHandled:
		return fmt.Sprintf("%s: input was not handled properly; update state, post an event, start a side-job or call NoOp", e.Code)
	case UsageAlreadyClosed:
		return fmt.Sprintf("%s: handler scope closed twice", e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Op)
}

// IsUsageError returns true if err is (or wraps) a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// GateError reports an operation attempted while the subsystem it needs is not open.
type GateError struct {
	Phase     Phase
	Subsystem Subsystem
	Op        string
}

// Error implements the error interface.
func (e *GateError) Error() string {
	switch e.Phase {
	case PhaseNotStarted:
		return fmt.Sprintf("%s: viewmodel is not started (%s)", e.Op, e.Subsystem)
	case PhaseCleared:
		return fmt.Sprintf("%s: viewmodel is cleared (%s)", e.Op, e.Subsystem)
	}
	return fmt.Sprintf("%s: %s is closed while the viewmodel is %s", e.Op, e.Subsystem, e.Phase)
}

// IsGateError returns true if err is (or wraps) a GateError.
func IsGateError(err error) bool {
	var ge *GateError
	return errors.As(err, &ge)
}

// HandlerError wraps a failure raised by user Input, Event or side-job code.
// Panics are recovered and converted, with the recovered value kept in Panic.
type HandlerError struct {
	Err   error
	Panic any
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler panicked: %v", e.Panic)
	}
	return fmt.Sprintf("handler failed: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// NewPanicError converts a recovered panic value into a HandlerError.
func NewPanicError(recovered any) *HandlerError {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("%v", recovered)
	}
	return &HandlerError{Err: err, Panic: recovered}
}
