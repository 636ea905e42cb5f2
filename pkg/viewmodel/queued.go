package viewmodel

import (
	"context"
	"sync"
)

// Queued is an item travelling through an InputStrategy's queue.
// It is a closed union: HandleInput, RestoreState or ShutDownGracefully.
type Queued[I, S any] interface {
	queued()
}

// HandleInput asks the ViewModel to run the InputHandler for Input.
type HandleInput[I, S any] struct {
	Input      I
	Completion *Completion // optional
}

// RestoreState replaces the State wholesale, bypassing the InputHandler.
type RestoreState[I, S any] struct {
	State      S
	Completion *Completion // optional
}

// ShutDownGracefully tells the strategy to finish in-flight work and stop reading.
type ShutDownGracefully[I, S any] struct{}

func (HandleInput[I, S]) queued()        {}
func (RestoreState[I, S]) queued()       {}
func (ShutDownGracefully[I, S]) queued() {}

// Outcome is the terminal status of a queued item.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeHandled
	OutcomeRejected
	OutcomeDropped
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeHandled:
		return "handled"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDropped:
		return "dropped"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Completion is a one-shot signal attached to a queued item so the sender can wait
// for its processing to end. Queued items may carry a nil *Completion; the runtime
// never completes a nil one.
type Completion struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
	err     error
}

// NewCompletion creates a pending Completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Done is closed once the item reached a terminal outcome.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Outcome returns the terminal outcome, or OutcomePending.
func (c *Completion) Outcome() Outcome {
	select {
	case <-c.done:
		return c.outcome
	default:
		return OutcomePending
	}
}

// Err returns the error the item finished with. Only meaningful after Done.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until the item finishes or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Completion) complete(outcome Outcome, err error) {
	if c == nil {
		return
	}
	c.once.Do(func() {
		c.outcome = outcome
		c.err = err
		close(c.done)
	})
}

func completionOf[I, S any](q Queued[I, S]) *Completion {
	switch q := q.(type) {
	case HandleInput[I, S]:
		return q.Completion
	case RestoreState[I, S]:
		return q.Completion
	}
	return nil
}
