package viewmodel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/spindle/pkg/domain"
)

// notifier delivers hook callbacks. Each registered Hooks value is isolated: a panic in
// one is recovered, reported as an unhandled error, and does not stop the others.
type notifier[I, E, S any] struct {
	hooks  []domain.Hooks[I, E, S]
	logger *slog.Logger
}

func (n *notifier[I, E, S]) each(ctx context.Context, name string, fn func(h domain.Hooks[I, E, S])) {
	for _, h := range n.hooks {
		n.guard(ctx, name, func() { fn(h) })
	}
}

func (n *notifier[I, E, S]) guard(ctx context.Context, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.unhandled(ctx, fmt.Errorf("hook %s panicked: %v", name, r))
		}
	}()
	fn()
}

// unhandled is the catch-all sink. It never panics.
func (n *notifier[I, E, S]) unhandled(ctx context.Context, err error) {
	n.logger.Error("Unhandled error", "err", err)
	for _, h := range n.hooks {
		if h.OnUnhandledError == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					n.logger.Error("OnUnhandledError hook panicked", "panic", r, "err", err)
				}
			}()
			h.OnUnhandledError(ctx, err)
		}()
	}
}

func (n *notifier[I, E, S]) started(ctx context.Context, name string) {
	n.each(ctx, "OnViewModelStarted", func(h domain.Hooks[I, E, S]) {
		if h.OnViewModelStarted != nil {
			h.OnViewModelStarted(ctx, name)
		}
	})
}

func (n *notifier[I, E, S]) cleared(ctx context.Context, name string) {
	n.each(ctx, "OnViewModelCleared", func(h domain.Hooks[I, E, S]) {
		if h.OnViewModelCleared != nil {
			h.OnViewModelCleared(ctx, name)
		}
	})
}

func (n *notifier[I, E, S]) input(ctx context.Context, name string, input I, pick func(domain.Hooks[I, E, S]) func(context.Context, I)) {
	n.each(ctx, name, func(h domain.Hooks[I, E, S]) {
		if fn := pick(h); fn != nil {
			fn(ctx, input)
		}
	})
}

func (n *notifier[I, E, S]) inputQueued(ctx context.Context, input I) {
	n.input(ctx, "OnInputQueued", input, func(h domain.Hooks[I, E, S]) func(context.Context, I) { return h.OnInputQueued })
}

func (n *notifier[I, E, S]) inputAccepted(ctx context.Context, input I) {
	n.input(ctx, "OnInputAccepted", input, func(h domain.Hooks[I, E, S]) func(context.Context, I) { return h.OnInputAccepted })
}

func (n *notifier[I, E, S]) inputRejected(ctx context.Context, input I) {
	n.input(ctx, "OnInputRejected", input, func(h domain.Hooks[I, E, S]) func(context.Context, I) { return h.OnInputRejected })
}

func (n *notifier[I, E, S]) inputDropped(ctx context.Context, input I) {
	n.input(ctx, "OnInputDropped", input, func(h domain.Hooks[I, E, S]) func(context.Context, I) { return h.OnInputDropped })
}

func (n *notifier[I, E, S]) inputHandled(ctx context.Context, input I) {
	n.input(ctx, "OnInputHandledSuccessfully", input, func(h domain.Hooks[I, E, S]) func(context.Context, I) { return h.OnInputHandledSuccessfully })
}

func (n *notifier[I, E, S]) inputCancelled(ctx context.Context, input I) {
	n.input(ctx, "OnInputCancelled", input, func(h domain.Hooks[I, E, S]) func(context.Context, I) { return h.OnInputCancelled })
}

func (n *notifier[I, E, S]) inputFailed(ctx context.Context, input I, err error) {
	n.each(ctx, "OnInputHandlerError", func(h domain.Hooks[I, E, S]) {
		if h.OnInputHandlerError != nil {
			h.OnInputHandlerError(ctx, input, err)
		}
	})
}

func (n *notifier[I, E, S]) eventEmitted(ctx context.Context, event E) {
	n.each(ctx, "OnEventEmitted", func(h domain.Hooks[I, E, S]) {
		if h.OnEventEmitted != nil {
			h.OnEventEmitted(ctx, event)
		}
	})
}

func (n *notifier[I, E, S]) eventHandled(ctx context.Context, event E) {
	n.each(ctx, "OnEventHandledSuccessfully", func(h domain.Hooks[I, E, S]) {
		if h.OnEventHandledSuccessfully != nil {
			h.OnEventHandledSuccessfully(ctx, event)
		}
	})
}

func (n *notifier[I, E, S]) eventFailed(ctx context.Context, event E, err error) {
	n.each(ctx, "OnEventHandlerError", func(h domain.Hooks[I, E, S]) {
		if h.OnEventHandlerError != nil {
			h.OnEventHandlerError(ctx, event, err)
		}
	})
}

func (n *notifier[I, E, S]) stateEmitted(ctx context.Context, state S) {
	n.each(ctx, "OnStateEmitted", func(h domain.Hooks[I, E, S]) {
		if h.OnStateEmitted != nil {
			h.OnStateEmitted(ctx, state)
		}
	})
}

func (n *notifier[I, E, S]) stateRestored(ctx context.Context, state S) {
	n.each(ctx, "OnStateRestored", func(h domain.Hooks[I, E, S]) {
		if h.OnStateRestored != nil {
			h.OnStateRestored(ctx, state)
		}
	})
}

func (n *notifier[I, E, S]) sideJobQueued(ctx context.Context, key string) {
	n.each(ctx, "OnSideJobQueued", func(h domain.Hooks[I, E, S]) {
		if h.OnSideJobQueued != nil {
			h.OnSideJobQueued(ctx, key)
		}
	})
}

func (n *notifier[I, E, S]) sideJob(ctx context.Context, name, key string, restart domain.RestartState, pick func(domain.Hooks[I, E, S]) func(context.Context, string, domain.RestartState)) {
	n.each(ctx, name, func(h domain.Hooks[I, E, S]) {
		if fn := pick(h); fn != nil {
			fn(ctx, key, restart)
		}
	})
}

func (n *notifier[I, E, S]) sideJobStarted(ctx context.Context, key string, restart domain.RestartState) {
	n.sideJob(ctx, "OnSideJobStarted", key, restart, func(h domain.Hooks[I, E, S]) func(context.Context, string, domain.RestartState) {
		return h.OnSideJobStarted
	})
}

func (n *notifier[I, E, S]) sideJobCompleted(ctx context.Context, key string, restart domain.RestartState) {
	n.sideJob(ctx, "OnSideJobCompleted", key, restart, func(h domain.Hooks[I, E, S]) func(context.Context, string, domain.RestartState) {
		return h.OnSideJobCompleted
	})
}

func (n *notifier[I, E, S]) sideJobCancelled(ctx context.Context, key string, restart domain.RestartState) {
	n.sideJob(ctx, "OnSideJobCancelled", key, restart, func(h domain.Hooks[I, E, S]) func(context.Context, string, domain.RestartState) {
		return h.OnSideJobCancelled
	})
}

func (n *notifier[I, E, S]) sideJobFailed(ctx context.Context, key string, restart domain.RestartState, err error) {
	n.each(ctx, "OnSideJobError", func(h domain.Hooks[I, E, S]) {
		if h.OnSideJobError != nil {
			h.OnSideJobError(ctx, key, restart, err)
		}
	})
}
