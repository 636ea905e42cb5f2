package viewmodel

import (
	"context"

	"github.com/aretw0/spindle/pkg/domain"
)

// InputHandler is the user code that turns an Input into state changes, events and
// side-jobs. It is invoked once per accepted Input.
type InputHandler[I, E, S any] interface {
	HandleInput(ctx context.Context, scope *HandlerScope[I, E, S], input I) error
}

// InputHandlerFunc adapts a function to InputHandler.
type InputHandlerFunc[I, E, S any] func(ctx context.Context, scope *HandlerScope[I, E, S], input I) error

// HandleInput calls f.
func (f InputHandlerFunc[I, E, S]) HandleInput(ctx context.Context, scope *HandlerScope[I, E, S], input I) error {
	return f(ctx, scope, input)
}

// EventHandler receives Events one at a time, in the order they were posted.
type EventHandler[I, E, S any] interface {
	HandleEvent(ctx context.Context, scope *EventHandlerScope[I, E, S], event E) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc[I, E, S any] func(ctx context.Context, scope *EventHandlerScope[I, E, S], event E) error

// HandleEvent calls f.
func (f EventHandlerFunc[I, E, S]) HandleEvent(ctx context.Context, scope *EventHandlerScope[I, E, S], event E) error {
	return f(ctx, scope, event)
}

// InputFilter decides whether an Input reaches the InputHandler.
// It runs on the queue's goroutine and must not block.
type InputFilter[I, S any] interface {
	FilterInput(state S, input I) domain.FilterResult
}

// InputFilterFunc adapts a function to InputFilter.
type InputFilterFunc[I, S any] func(state S, input I) domain.FilterResult

// FilterInput calls f.
func (f InputFilterFunc[I, S]) FilterInput(state S, input I) domain.FilterResult {
	return f(state, input)
}

// SideJobFunc is the body of a side-job. It must return when ctx is done.
type SideJobFunc[I, E, S any] func(ctx context.Context, scope *SideJobScope[I, E, S]) error

// SideJobRequest is a side-job registered by a handler, started after the handler returns.
type SideJobRequest[I, E, S any] struct {
	Key string
	Fn  SideJobFunc[I, E, S]
}
