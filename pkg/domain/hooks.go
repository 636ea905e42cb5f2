package domain

import "context"

// Hooks defines observational callbacks for a ViewModel.
// Every field is optional. Hooks run synchronously on the goroutine that produced the
// notification, so they must return quickly; a panicking hook is recovered and reported
// through OnUnhandledError.
type Hooks[I, E, S any] struct {
	OnViewModelStarted func(ctx context.Context, name string)
	OnViewModelCleared func(ctx context.Context, name string)

	OnInputQueued              func(ctx context.Context, input I)
	OnInputAccepted            func(ctx context.Context, input I)
	OnInputRejected            func(ctx context.Context, input I)
	OnInputDropped             func(ctx context.Context, input I)
	OnInputHandledSuccessfully func(ctx context.Context, input I)
	OnInputCancelled           func(ctx context.Context, input I)
	OnInputHandlerError        func(ctx context.Context, input I, err error)

	OnEventEmitted             func(ctx context.Context, event E)
	OnEventHandledSuccessfully func(ctx context.Context, event E)
	OnEventHandlerError        func(ctx context.Context, event E, err error)

	OnStateEmitted  func(ctx context.Context, state S)
	OnStateRestored func(ctx context.Context, state S)

	OnSideJobQueued    func(ctx context.Context, key string)
	OnSideJobStarted   func(ctx context.Context, key string, restart RestartState)
	OnSideJobCompleted func(ctx context.Context, key string, restart RestartState)
	OnSideJobCancelled func(ctx context.Context, key string, restart RestartState)
	OnSideJobError     func(ctx context.Context, key string, restart RestartState, err error)

	OnUnhandledError func(ctx context.Context, err error)
}

// MultiHooks fans a notification out to every non-nil callback of each Hooks, in order.
func MultiHooks[I, E, S any](all ...Hooks[I, E, S]) Hooks[I, E, S] {
	var m Hooks[I, E, S]

	m.OnViewModelStarted = func(ctx context.Context, name string) {
		for _, h := range all {
			if h.OnViewModelStarted != nil {
				h.OnViewModelStarted(ctx, name)
			}
		}
	}
	m.OnViewModelCleared = func(ctx context.Context, name string) {
		for _, h := range all {
			if h.OnViewModelCleared != nil {
				h.OnViewModelCleared(ctx, name)
			}
		}
	}

	m.OnInputQueued = fanInput(all, func(h Hooks[I, E, S]) func(context.Context, I) { return h.OnInputQueued })
	m.OnInputAccepted = fanInput(all, func(h Hooks[I, E, S]) func(context.Context, I) { return h.OnInputAccepted })
	m.OnInputRejected = fanInput(all, func(h Hooks[I, E, S]) func(context.Context, I) { return h.OnInputRejected })
	m.OnInputDropped = fanInput(all, func(h Hooks[I, E, S]) func(context.Context, I) { return h.OnInputDropped })
	m.OnInputHandledSuccessfully = fanInput(all, func(h Hooks[I, E, S]) func(context.Context, I) { return h.OnInputHandledSuccessfully })
	m.OnInputCancelled = fanInput(all, func(h Hooks[I, E, S]) func(context.Context, I) { return h.OnInputCancelled })
	m.OnInputHandlerError = func(ctx context.Context, input I, err error) {
		for _, h := range all {
			if h.OnInputHandlerError != nil {
				h.OnInputHandlerError(ctx, input, err)
			}
		}
	}

	m.OnEventEmitted = func(ctx context.Context, event E) {
		for _, h := range all {
			if h.OnEventEmitted != nil {
				h.OnEventEmitted(ctx, event)
			}
		}
	}
	m.OnEventHandledSuccessfully = func(ctx context.Context, event E) {
		for _, h := range all {
			if h.OnEventHandledSuccessfully != nil {
				h.OnEventHandledSuccessfully(ctx, event)
			}
		}
	}
	m.OnEventHandlerError = func(ctx context.Context, event E, err error) {
		for _, h := range all {
			if h.OnEventHandlerError != nil {
				h.OnEventHandlerError(ctx, event, err)
			}
		}
	}

	m.OnStateEmitted = func(ctx context.Context, state S) {
		for _, h := range all {
			if h.OnStateEmitted != nil {
				h.OnStateEmitted(ctx, state)
			}
		}
	}
	m.OnStateRestored = func(ctx context.Context, state S) {
		for _, h := range all {
			if h.OnStateRestored != nil {
				h.OnStateRestored(ctx, state)
			}
		}
	}

	m.OnSideJobQueued = func(ctx context.Context, key string) {
		for _, h := range all {
			if h.OnSideJobQueued != nil {
				h.OnSideJobQueued(ctx, key)
			}
		}
	}
	m.OnSideJobStarted = fanSideJob(all, func(h Hooks[I, E, S]) func(context.Context, string, RestartState) { return h.OnSideJobStarted })
	m.OnSideJobCompleted = fanSideJob(all, func(h Hooks[I, E, S]) func(context.Context, string, RestartState) { return h.OnSideJobCompleted })
	m.OnSideJobCancelled = fanSideJob(all, func(h Hooks[I, E, S]) func(context.Context, string, RestartState) { return h.OnSideJobCancelled })
	m.OnSideJobError = func(ctx context.Context, key string, restart RestartState, err error) {
		for _, h := range all {
			if h.OnSideJobError != nil {
				h.OnSideJobError(ctx, key, restart, err)
			}
		}
	}

	m.OnUnhandledError = func(ctx context.Context, err error) {
		for _, h := range all {
			if h.OnUnhandledError != nil {
				h.OnUnhandledError(ctx, err)
			}
		}
	}

	return m
}

func fanInput[I, E, S any](all []Hooks[I, E, S], pick func(Hooks[I, E, S]) func(context.Context, I)) func(context.Context, I) {
	return func(ctx context.Context, input I) {
		for _, h := range all {
			if fn := pick(h); fn != nil {
				fn(ctx, input)
			}
		}
	}
}

func fanSideJob[I, E, S any](all []Hooks[I, E, S], pick func(Hooks[I, E, S]) func(context.Context, string, RestartState)) func(context.Context, string, RestartState) {
	return func(ctx context.Context, key string, restart RestartState) {
		for _, h := range all {
			if fn := pick(h); fn != nil {
				fn(ctx, key, restart)
			}
		}
	}
}
