package spindle

import (
	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/viewmodel"
)

// Core types, re-exported so that simple programs only import this package.
type (
	ViewModel[I, E, S any]         = viewmodel.ViewModel[I, E, S]
	Config[I, E, S any]            = viewmodel.Config[I, E, S]
	HandlerScope[I, E, S any]      = viewmodel.HandlerScope[I, E, S]
	SideJobScope[I, E, S any]      = viewmodel.SideJobScope[I, E, S]
	EventHandlerScope[I, E, S any] = viewmodel.EventHandlerScope[I, E, S]
	InputHandlerFunc[I, E, S any]  = viewmodel.InputHandlerFunc[I, E, S]
	EventHandlerFunc[I, E, S any]  = viewmodel.EventHandlerFunc[I, E, S]
	InputFilterFunc[I, S any]      = viewmodel.InputFilterFunc[I, S]
	SideJobFunc[I, E, S any]       = viewmodel.SideJobFunc[I, E, S]
	InputStrategy[I, S any]        = viewmodel.InputStrategy[I, S]
	Hooks[I, E, S any]             = domain.Hooks[I, E, S]
)

// Sentinel errors returned by SendAndAwait.
var (
	ErrInputRejected  = domain.ErrInputRejected
	ErrInputDropped   = domain.ErrInputDropped
	ErrInputCancelled = domain.ErrInputCancelled
)

// New creates a ViewModel in the NotStarted phase.
func New[I, E, S any](cfg Config[I, E, S]) (*ViewModel[I, E, S], error) {
	return viewmodel.New(cfg)
}

// NewFIFO returns a first-in first-out InputStrategy.
func NewFIFO[I, S any](opts ...viewmodel.QueueOption) InputStrategy[I, S] {
	return viewmodel.NewFIFO[I, S](opts...)
}

// NewLIFO returns an InputStrategy where the newest Input cancels the one in flight.
func NewLIFO[I, S any](opts ...viewmodel.QueueOption) InputStrategy[I, S] {
	return viewmodel.NewLIFO[I, S](opts...)
}

// NewParallel returns an InputStrategy handling every Input concurrently.
func NewParallel[I, S any](opts ...viewmodel.QueueOption) InputStrategy[I, S] {
	return viewmodel.NewParallel[I, S](opts...)
}
