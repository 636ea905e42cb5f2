package viewmodel

import "context"

// LIFO keeps only the latest Input alive: accepting a new item cancels the one in
// flight, waits for its rollback to finish, then starts the new one. At most one
// handler runs at a time. The small queue drops arriving Inputs when full.
type LIFO[I, S any] struct {
	*channelQueue[I, S]
}

// NewLIFO creates a LIFO strategy. Defaults: capacity 8, OverflowDropLatest.
func NewLIFO[I, S any](opts ...QueueOption) *LIFO[I, S] {
	return &LIFO[I, S]{
		channelQueue: newChannelQueue[I, S](QueueOptions{Capacity: 8, Overflow: OverflowDropLatest}, opts),
	}
}

func (s *LIFO[I, S]) Name() string { return StrategyLIFO }

func (s *LIFO[I, S]) RollbackOnCancellation() bool { return true }

type inflight struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *LIFO[I, S]) Run(ctx context.Context, scope StrategyScope[I, S]) error {
	var current *inflight

	// supersede cancels the in-flight item and waits until its Process call,
	// rollback included, has returned.
	supersede := func() {
		if current == nil {
			return
		}
		current.cancel()
		<-current.done
		current = nil
	}
	defer supersede()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q := <-s.receive():
			if isShutdown[I, S](q) {
				if current != nil {
					select {
					case <-current.done:
					case <-ctx.Done():
						return ctx.Err()
					}
					current.cancel()
					current = nil
				}
				return nil
			}
			if !scope.Filter(ctx, q) {
				continue
			}

			supersede()

			child, cancel := context.WithCancel(ctx)
			job := &inflight{cancel: cancel, done: make(chan struct{})}
			current = job
			go func() {
				defer close(job.done)
				scope.Process(child, q, s.RollbackOnCancellation())
			}()
		}
	}
}
