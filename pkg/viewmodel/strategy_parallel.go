package viewmodel

import (
	"context"
	"sync"
)

// Parallel runs every accepted item in its own goroutine with no ordering or mutual
// exclusion between Inputs. State is never rolled back: other Inputs may have written
// in between, so there is no well-defined earlier state to return to.
type Parallel[I, S any] struct {
	*channelQueue[I, S]
}

// NewParallel creates a Parallel strategy. Defaults: capacity 64, OverflowSuspend.
func NewParallel[I, S any](opts ...QueueOption) *Parallel[I, S] {
	return &Parallel[I, S]{
		channelQueue: newChannelQueue[I, S](QueueOptions{Capacity: 64, Overflow: OverflowSuspend}, opts),
	}
}

func (s *Parallel[I, S]) Name() string { return StrategyParallel }

func (s *Parallel[I, S]) RollbackOnCancellation() bool { return false }

func (s *Parallel[I, S]) Run(ctx context.Context, scope StrategyScope[I, S]) error {
	var wg sync.WaitGroup
	defer wg.Wait()

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
			wg.Add(1)
			go func() {
				defer wg.Done()
				scope.Process(ctx, q, s.RollbackOnCancellation())
			}()
		}
	}
}
