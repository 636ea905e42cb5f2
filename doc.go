/*
Package spindle is a state runtime for Model-View-Intent style view models.

A ViewModel owns one State and changes it only by processing Inputs. How queued
Inputs are scheduled is the job of an InputStrategy:

  - FIFO handles one Input at a time, in arrival order.
  - LIFO cancels the Input in flight whenever a newer one is accepted, rolling its
    state changes back, so only the latest intent survives.
  - Parallel handles every Input concurrently; state updates stay atomic.

Handlers work through a HandlerScope. They may update the State, post one-off
Events to a buffered, strictly ordered EventHandler, and start keyed side-jobs that
outlive the Input. A Guardian checks every scope call, so a handler that touches
the State after registering a side-job, or that does nothing at all, fails loudly
instead of racing.

# Usage

	type Input string

	vm, err := spindle.New(spindle.Config[Input, string, int]{
		InputHandler: spindle.InputHandlerFunc[Input, string, int](
			func(ctx context.Context, scope *spindle.HandlerScope[Input, string, int], in Input) error {
				return scope.UpdateState(func(n int) int { return n + 1 })
			}),
		InputStrategy: spindle.NewLIFO[Input, int](),
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := vm.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer vm.Close(context.Background())

	if err := vm.SendAndAwait(ctx, "click"); err != nil {
		log.Fatal(err)
	}

Lifecycle notifications (Inputs handled, cancelled, rejected, States emitted,
side-jobs started and stopped) are delivered through Hooks; pkg/observability turns
them into prometheus metrics and structured logs, pkg/vmtest into assertions.
*/
package spindle
