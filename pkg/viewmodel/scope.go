package viewmodel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/spindle/internal/guardian"
)

// HandlerScope is everything an InputHandler may do while handling one Input.
//
// Every call is checked by a Guardian: state may not be read or written, and events
// may not be posted, after a side-job was registered. A handler must do at least one
// of those things, or call NoOp. Once the handler returned the scope is closed and
// every call fails.
type HandlerScope[I, E, S any] struct {
	ctx      context.Context
	vm       *ViewModel[I, E, S]
	guardian *guardian.Guardian

	mu       sync.Mutex
	sideJobs []SideJobRequest[I, E, S]
}

func newHandlerScope[I, E, S any](ctx context.Context, vm *ViewModel[I, E, S]) *HandlerScope[I, E, S] {
	return &HandlerScope[I, E, S]{
		ctx:      ctx,
		vm:       vm,
		guardian: guardian.New(),
	}
}

// Context is cancelled when the Input is cancelled.
func (s *HandlerScope[I, E, S]) Context() context.Context {
	return s.ctx
}

// Logger returns the ViewModel logger.
func (s *HandlerScope[I, E, S]) Logger() *slog.Logger {
	return s.vm.logger
}

// CurrentState returns the latest State.
func (s *HandlerScope[I, E, S]) CurrentState() (S, error) {
	if err := s.check(s.guardian.CheckStateAccess()); err != nil {
		var zero S
		return zero, err
	}
	return s.vm.state.Value(), nil
}

// UpdateState atomically replaces the State with fn(current).
// fn may run more than once under contention and must be pure.
func (s *HandlerScope[I, E, S]) UpdateState(fn func(S) S) error {
	_, _, err := s.update("UpdateState", fn)
	return err
}

// UpdateStateAndGet is UpdateState returning the committed value.
func (s *HandlerScope[I, E, S]) UpdateStateAndGet(fn func(S) S) (S, error) {
	_, next, err := s.update("UpdateStateAndGet", fn)
	return next, err
}

// GetAndUpdateState is UpdateState returning the replaced value.
func (s *HandlerScope[I, E, S]) GetAndUpdateState(fn func(S) S) (S, error) {
	old, _, err := s.update("GetAndUpdateState", fn)
	return old, err
}

func (s *HandlerScope[I, E, S]) update(op string, fn func(S) S) (old, next S, err error) {
	if err = s.check(s.guardian.CheckStateUpdate()); err != nil {
		return old, next, err
	}
	if err = s.vm.life.checkStateChangeOpen(op); err != nil {
		return old, next, err
	}
	old, next = s.vm.state.Update(fn)
	return old, next, nil
}

// PostEvent queues an Event. It blocks while the event buffer is full, or until the
// Input is cancelled.
func (s *HandlerScope[I, E, S]) PostEvent(event E) error {
	if err := s.check(s.guardian.CheckPostEvent()); err != nil {
		return err
	}
	return s.vm.emitEvent(s.ctx, event)
}

// SideJob registers a side-job to be started once the handler returns successfully.
// Registering a key that is already running restarts it. After the first SideJob
// call the handler may only register further side-jobs.
func (s *HandlerScope[I, E, S]) SideJob(key string, fn SideJobFunc[I, E, S]) error {
	if err := s.check(s.guardian.CheckSideJob()); err != nil {
		return err
	}
	s.mu.Lock()
	s.sideJobs = append(s.sideJobs, SideJobRequest[I, E, S]{Key: key, Fn: fn})
	s.mu.Unlock()

	s.vm.notify.sideJobQueued(s.ctx, key)
	return nil
}

// NoOp marks the Input as deliberately handled without any effect.
func (s *HandlerScope[I, E, S]) NoOp() error {
	return s.check(s.guardian.CheckNoOp())
}

// check routes calls on a closed scope to the unhandled sink as well: nobody is
// left to look at the returned error.
func (s *HandlerScope[I, E, S]) check(err error) error {
	if err == nil {
		return nil
	}
	if s.guardian.Closed() {
		s.vm.notify.unhandled(s.vm.baseContext(), err)
	}
	return err
}

// usage describes what the handler did with the scope, as log attributes.
func (s *HandlerScope[I, E, S]) usage() []any {
	return []any{
		"state_accessed", s.guardian.StateAccessed(),
		"side_jobs_posted", s.guardian.SideJobsPosted(),
		"violation", s.guardian.Violation(),
	}
}

// close ends the scope and hands back the registered side-jobs.
func (s *HandlerScope[I, E, S]) close() ([]SideJobRequest[I, E, S], error) {
	err := s.guardian.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := s.sideJobs
	s.sideJobs = nil
	return jobs, err
}
