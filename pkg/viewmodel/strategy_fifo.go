package viewmodel

import "context"

// FIFO processes one item at a time, in arrival order, each to completion.
// Nothing is cancelled except by ViewModel teardown, which rolls the in-flight
// Input back. The queue suspends senders when full.
type FIFO[I, S any] struct {
	*channelQueue[I, S]
}

// NewFIFO creates a FIFO strategy. Defaults: capacity 64, OverflowSuspend.
func NewFIFO[I, S any](opts ...QueueOption) *FIFO[I, S] {
	return &FIFO[I, S]{
		channelQueue: newChannelQueue[I, S](QueueOptions{Capacity: 64, Overflow: OverflowSuspend}, opts),
	}
}

func (s *FIFO[I, S]) Name() string { return StrategyFIFO }

func (s *FIFO[I, S]) RollbackOnCancellation() bool { return true }

func (s *FIFO[I, S]) Run(ctx context.Context, scope StrategyScope[I, S]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q := <-s.receive():
			if isShutdown[I, S](q) {
				return nil
			}
			if !scope.Filter(ctx, q) {
				continue
			}
			scope.Process(ctx, q, s.RollbackOnCancellation())
		}
	}
}
