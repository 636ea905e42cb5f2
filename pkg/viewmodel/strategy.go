package viewmodel

import (
	"context"
	"fmt"

	"github.com/aretw0/spindle/pkg/domain"
)

// Strategy names accepted by NewInputStrategy.
const (
	StrategyFIFO     = "fifo"
	StrategyLIFO     = "lifo"
	StrategyParallel = "parallel"
)

// InputStrategy owns the Input queue and decides how queued items are scheduled:
// how many run at once, whether new items cancel old ones, and whether state rolls
// back when an Input is cancelled.
type InputStrategy[I, S any] interface {
	Name() string
	RollbackOnCancellation() bool

	// Enqueue places an item on the queue, blocking or dropping per the overflow policy.
	Enqueue(ctx context.Context, q Queued[I, S]) error
	// TryEnqueue never blocks.
	TryEnqueue(q Queued[I, S]) domain.SendResult

	// Run reads the queue until ctx is done or a ShutDownGracefully item is processed.
	Run(ctx context.Context, scope StrategyScope[I, S]) error
	// Drain removes every item still buffered. It is called once Run has returned.
	Drain() []Queued[I, S]
}

// StrategyScope is the ViewModel side of the contract, called from Run.
type StrategyScope[I, S any] interface {
	// Filter applies the InputFilter. Control items always pass.
	Filter(ctx context.Context, q Queued[I, S]) bool
	// Process handles one accepted item to completion. Cancelling ctx cancels it.
	Process(ctx context.Context, q Queued[I, S], rollback bool)
}

// NewInputStrategy builds a strategy by name ("fifo", "lifo" or "parallel").
func NewInputStrategy[I, S any](name string, opts ...QueueOption) (InputStrategy[I, S], error) {
	switch name {
	case "", StrategyFIFO:
		return NewFIFO[I, S](opts...), nil
	case StrategyLIFO:
		return NewLIFO[I, S](opts...), nil
	case StrategyParallel:
		return NewParallel[I, S](opts...), nil
	}
	return nil, fmt.Errorf("unknown input strategy %q", name)
}

func isShutdown[I, S any](q Queued[I, S]) bool {
	_, ok := q.(ShutDownGracefully[I, S])
	return ok
}
