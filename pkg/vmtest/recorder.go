// Package vmtest records what a ViewModel did, for tests and harnesses.
package vmtest

import (
	"context"
	"sync"

	"github.com/aretw0/spindle/pkg/domain"
)

// SideJobRecord is one side-job lifecycle notification.
type SideJobRecord struct {
	Key          string
	RestartState domain.RestartState
}

// Recorder collects hook traffic. Attach it with Hooks and read it with the
// accessor methods, which return copies.
type Recorder[I, E, S any] struct {
	mu sync.Mutex

	successfulInputs []I
	cancelledInputs  []I
	rejectedInputs   []I
	droppedInputs    []I
	inputErrors      []error
	events           []E
	handledEvents    []E
	eventErrors      []error
	states           []S
	restoredStates   []S
	sideJobsStarted  []SideJobRecord
	sideJobsDone     []SideJobRecord
	sideJobsCanceled []SideJobRecord
	sideJobErrors    []error
	unhandled        []error
}

// NewRecorder creates an empty Recorder.
func NewRecorder[I, E, S any]() *Recorder[I, E, S] {
	return &Recorder[I, E, S]{}
}

// Hooks returns callbacks feeding the Recorder.
func (r *Recorder[I, E, S]) Hooks() domain.Hooks[I, E, S] {
	return domain.Hooks[I, E, S]{
		OnInputHandledSuccessfully: func(_ context.Context, in I) { record(r, &r.successfulInputs, in) },
		OnInputCancelled:           func(_ context.Context, in I) { record(r, &r.cancelledInputs, in) },
		OnInputRejected:            func(_ context.Context, in I) { record(r, &r.rejectedInputs, in) },
		OnInputDropped:             func(_ context.Context, in I) { record(r, &r.droppedInputs, in) },
		OnInputHandlerError:        func(_ context.Context, _ I, err error) { record(r, &r.inputErrors, err) },

		OnEventEmitted:             func(_ context.Context, e E) { record(r, &r.events, e) },
		OnEventHandledSuccessfully: func(_ context.Context, e E) { record(r, &r.handledEvents, e) },
		OnEventHandlerError:        func(_ context.Context, _ E, err error) { record(r, &r.eventErrors, err) },

		OnStateEmitted:  func(_ context.Context, s S) { record(r, &r.states, s) },
		OnStateRestored: func(_ context.Context, s S) { record(r, &r.restoredStates, s) },

		OnSideJobStarted: func(_ context.Context, key string, rs domain.RestartState) {
			record(r, &r.sideJobsStarted, SideJobRecord{Key: key, RestartState: rs})
		},
		OnSideJobCompleted: func(_ context.Context, key string, rs domain.RestartState) {
			record(r, &r.sideJobsDone, SideJobRecord{Key: key, RestartState: rs})
		},
		OnSideJobCancelled: func(_ context.Context, key string, rs domain.RestartState) {
			record(r, &r.sideJobsCanceled, SideJobRecord{Key: key, RestartState: rs})
		},
		OnSideJobError: func(_ context.Context, _ string, _ domain.RestartState, err error) {
			record(r, &r.sideJobErrors, err)
		},

		OnUnhandledError: func(_ context.Context, err error) { record(r, &r.unhandled, err) },
	}
}

func record[I, E, S, T any](r *Recorder[I, E, S], dst *[]T, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*dst = append(*dst, v)
}

// snapshot takes a pointer so the slice header is read under the lock.
func snapshot[I, E, S, T any](r *Recorder[I, E, S], src *[]T) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), (*src)...)
}

func (r *Recorder[I, E, S]) SuccessfulInputs() []I { return snapshot(r, &r.successfulInputs) }
func (r *Recorder[I, E, S]) CancelledInputs() []I  { return snapshot(r, &r.cancelledInputs) }
func (r *Recorder[I, E, S]) RejectedInputs() []I   { return snapshot(r, &r.rejectedInputs) }
func (r *Recorder[I, E, S]) DroppedInputs() []I    { return snapshot(r, &r.droppedInputs) }
func (r *Recorder[I, E, S]) InputErrors() []error  { return snapshot(r, &r.inputErrors) }

func (r *Recorder[I, E, S]) Events() []E          { return snapshot(r, &r.events) }
func (r *Recorder[I, E, S]) HandledEvents() []E   { return snapshot(r, &r.handledEvents) }
func (r *Recorder[I, E, S]) EventErrors() []error { return snapshot(r, &r.eventErrors) }

// States returns every emitted State, rollbacks and restores included.
func (r *Recorder[I, E, S]) States() []S         { return snapshot(r, &r.states) }
func (r *Recorder[I, E, S]) RestoredStates() []S { return snapshot(r, &r.restoredStates) }

func (r *Recorder[I, E, S]) SideJobsStarted() []SideJobRecord   { return snapshot(r, &r.sideJobsStarted) }
func (r *Recorder[I, E, S]) SideJobsCompleted() []SideJobRecord { return snapshot(r, &r.sideJobsDone) }
func (r *Recorder[I, E, S]) SideJobsCancelled() []SideJobRecord { return snapshot(r, &r.sideJobsCanceled) }
func (r *Recorder[I, E, S]) SideJobErrors() []error             { return snapshot(r, &r.sideJobErrors) }

func (r *Recorder[I, E, S]) UnhandledErrors() []error { return snapshot(r, &r.unhandled) }
