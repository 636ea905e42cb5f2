package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/spindle/internal/logging"
	"github.com/aretw0/spindle/pkg/domain"
)

// Config assembles a ViewModel. Only InputHandler is required.
type Config[I, E, S any] struct {
	// Name identifies the ViewModel in logs and hooks. Defaults to "viewmodel".
	Name string

	Initial      S
	InputHandler InputHandler[I, E, S]
	EventHandler EventHandler[I, E, S]
	InputFilter  InputFilter[I, S]

	// InputStrategy defaults to NewFIFO.
	InputStrategy InputStrategy[I, S]
	// EventStrategy defaults to a 64 slot BufferedEventStrategy.
	EventStrategy EventStrategy[E]

	Hooks  []domain.Hooks[I, E, S]
	Logger *slog.Logger

	// SideJobGracePeriod is the initial grace period of every side-job.
	SideJobGracePeriod time.Duration
}

// ViewModel holds a State and mutates it only by processing Inputs, one InputStrategy
// decision at a time. Handlers may emit Events and start keyed side-jobs.
type ViewModel[I, E, S any] struct {
	id     string
	name   string
	logger *slog.Logger

	handler      InputHandler[I, E, S]
	eventHandler EventHandler[I, E, S]
	filter       InputFilter[I, S]

	inputs   InputStrategy[I, S]
	events   EventStrategy[E]
	state    *StateFlow[S]
	sideJobs *supervisor[I, E, S]
	notify   *notifier[I, E, S]
	life     *lifecycle
	grace    time.Duration

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	base    context.Context

	inputsDone   chan struct{}
	eventsDone   chan struct{}
	done         chan struct{}
	finalizeOnce sync.Once
}

// New creates a ViewModel in the NotStarted phase.
func New[I, E, S any](cfg Config[I, E, S]) (*ViewModel[I, E, S], error) {
	if cfg.InputHandler == nil {
		return nil, errors.New("viewmodel: input handler is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("viewmodel: generate id: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "viewmodel"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With("viewmodel", name, "id", id.String())

	inputs := cfg.InputStrategy
	if inputs == nil {
		inputs = NewFIFO[I, S]()
	}
	events := cfg.EventStrategy
	if events == nil {
		events = NewBufferedEventStrategy[E](0)
	}

	vm := &ViewModel[I, E, S]{
		id:           id.String(),
		name:         name,
		logger:       logger,
		handler:      cfg.InputHandler,
		eventHandler: cfg.EventHandler,
		filter:       cfg.InputFilter,
		inputs:       inputs,
		events:       events,
		state:        NewStateFlow(cfg.Initial),
		notify:       &notifier[I, E, S]{hooks: cfg.Hooks, logger: logger},
		life:         newLifecycle(),
		grace:        cfg.SideJobGracePeriod,
		base:         context.Background(),
		inputsDone:   make(chan struct{}),
		eventsDone:   make(chan struct{}),
		done:         make(chan struct{}),
	}
	vm.sideJobs = newSupervisor(vm)
	vm.state.onCommit = func(s S) {
		vm.notify.stateEmitted(vm.baseContext(), s)
	}
	return vm, nil
}

// ID is a time-ordered unique identifier assigned at construction.
func (vm *ViewModel[I, E, S]) ID() string { return vm.id }

// Name returns the configured name.
func (vm *ViewModel[I, E, S]) Name() string { return vm.name }

// Phase returns the current lifecycle phase.
func (vm *ViewModel[I, E, S]) Phase() domain.Phase { return vm.life.Phase() }

// Strategy returns the name of the InputStrategy in use.
func (vm *ViewModel[I, E, S]) Strategy() string { return vm.inputs.Name() }

// State returns the latest State.
func (vm *ViewModel[I, E, S]) State() S { return vm.state.Value() }

// Observe streams the current State and then every committed version, in order.
// The channel closes when ctx is done or the ViewModel is cleared.
func (vm *ViewModel[I, E, S]) Observe(ctx context.Context) <-chan S {
	return vm.state.Observe(ctx)
}

// Done is closed once the ViewModel reached PhaseCleared.
func (vm *ViewModel[I, E, S]) Done() <-chan struct{} { return vm.done }

// ActiveSideJobs returns how many side-jobs run under key and were not asked to stop.
func (vm *ViewModel[I, E, S]) ActiveSideJobs(key string) int {
	return vm.sideJobs.activeCount(key)
}

// Start launches the input and event loops. Cancelling ctx tears the ViewModel
// down without the graceful sequence of Close.
func (vm *ViewModel[I, E, S]) Start(ctx context.Context) error {
	if err := vm.life.start(); err != nil {
		return err
	}

	root, cancel := context.WithCancel(ctx)
	vm.mu.Lock()
	vm.started = true
	vm.ctx = root
	vm.cancel = cancel
	vm.base = context.WithoutCancel(root)
	vm.mu.Unlock()

	vm.logger.Info("ViewModel started", "strategy", vm.inputs.Name())
	vm.notify.started(vm.base, vm.name)

	go func() {
		defer close(vm.inputsDone)
		if err := vm.inputs.Run(root, vm); err != nil && !errors.Is(err, context.Canceled) {
			vm.notify.unhandled(vm.base, fmt.Errorf("input loop: %w", err))
		}
	}()
	go func() {
		defer close(vm.eventsDone)
		if err := vm.events.Run(root, vm.dispatchEvent); err != nil && !errors.Is(err, context.Canceled) {
			vm.notify.unhandled(vm.base, fmt.Errorf("event loop: %w", err))
		}
	}()
	go func() {
		select {
		case <-root.Done():
			vm.finalize()
		case <-vm.done:
		}
	}()
	return nil
}

// Close shuts the ViewModel down gracefully: queued Inputs are processed, side-jobs
// are stopped with their grace period, queued Events are delivered. If ctx ends
// first the remaining work is cancelled. Close is idempotent.
func (vm *ViewModel[I, E, S]) Close(ctx context.Context) error {
	if !vm.life.beginShutdown() {
		if vm.life.Phase() == domain.PhaseNotStarted {
			vm.finalize()
			return nil
		}
		select {
		case <-vm.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	vm.logger.Info("ViewModel shutting down")

	vm.life.closeSubsystem(domain.SubsystemMainQueue)
	if err := vm.inputs.Enqueue(ctx, ShutDownGracefully[I, S]{}); err != nil {
		vm.finalize()
		return err
	}
	select {
	case <-vm.inputsDone:
	case <-ctx.Done():
		vm.finalize()
		return ctx.Err()
	}
	vm.life.closeSubsystem(domain.SubsystemStateChange)

	vm.life.closeSubsystem(domain.SubsystemSideJobs)
	if err := vm.life.checkSideJobCancellationOpen("StopSideJobs"); err == nil {
		vm.sideJobs.stopAll()
	}
	vm.life.closeSubsystem(domain.SubsystemSideJobCancellation)
	if err := vm.sideJobs.wait(ctx); err != nil {
		vm.finalize()
		return err
	}

	vm.life.closeSubsystem(domain.SubsystemEvents)
	vm.events.Close()
	if err := vm.events.Flush(ctx); err != nil {
		vm.finalize()
		return err
	}

	vm.finalize()
	return nil
}

// finalize cancels whatever still runs, waits for it and clears the ViewModel.
func (vm *ViewModel[I, E, S]) finalize() {
	vm.finalizeOnce.Do(func() {
		vm.mu.Lock()
		started, cancel := vm.started, vm.cancel
		vm.mu.Unlock()

		if started {
			cancel()
			vm.sideJobs.cancelAll()
			<-vm.inputsDone
			vm.cancelQueued()
			<-vm.eventsDone
			vm.sideJobs.wg.Wait()
		}

		vm.state.close()
		vm.life.clear()
		vm.notify.cleared(vm.baseContext(), vm.name)
		vm.logger.Info("ViewModel cleared")
		close(vm.done)
	})
}

// cancelQueued resolves every item the input loop never reached.
func (vm *ViewModel[I, E, S]) cancelQueued() {
	ctx := vm.baseContext()
	for _, q := range vm.inputs.Drain() {
		vm.cancelItem(ctx, q)
	}
}

func (vm *ViewModel[I, E, S]) cancelItem(ctx context.Context, q Queued[I, S]) {
	if in, ok := q.(HandleInput[I, S]); ok {
		vm.logger.Debug("Input cancelled before it ran", "input", in.Input)
		vm.notify.inputCancelled(ctx, in.Input)
	}
	completionOf[I, S](q).complete(OutcomeCancelled, domain.ErrInputCancelled)
}

func (vm *ViewModel[I, E, S]) baseContext() context.Context {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.base
}

// Send queues input, waiting while the queue is full. It returns once the Input
// was accepted into the queue, not once it was handled.
func (vm *ViewModel[I, E, S]) Send(ctx context.Context, input I) error {
	return vm.send(ctx, HandleInput[I, S]{Input: input})
}

// TrySend queues input without waiting.
func (vm *ViewModel[I, E, S]) TrySend(input I) domain.SendResult {
	if err := vm.life.checkMainQueueOpen("TrySend"); err != nil {
		return domain.SendClosed
	}
	ctx := vm.baseContext()
	vm.notify.inputQueued(ctx, input)
	res := vm.inputs.TryEnqueue(HandleInput[I, S]{Input: input})
	if res == domain.SendRejected {
		vm.notify.inputDropped(ctx, input)
	}
	return res
}

// SendAndAwait queues input and waits until it was fully processed. It returns nil
// on success, ErrInputRejected, ErrInputDropped, ErrInputCancelled, or the error the
// handler failed with.
func (vm *ViewModel[I, E, S]) SendAndAwait(ctx context.Context, input I) error {
	c := NewCompletion()
	if err := vm.send(ctx, HandleInput[I, S]{Input: input, Completion: c}); err != nil {
		return err
	}
	return vm.await(ctx, c)
}

// Restore replaces the State through the Input queue, so it is ordered with the
// Inputs around it, and waits until it was applied.
func (vm *ViewModel[I, E, S]) Restore(ctx context.Context, state S) error {
	if err := vm.life.checkMainQueueOpen("Restore"); err != nil {
		return err
	}
	c := NewCompletion()
	if err := vm.inputs.Enqueue(ctx, RestoreState[I, S]{State: state, Completion: c}); err != nil {
		return err
	}
	return vm.await(ctx, c)
}

func (vm *ViewModel[I, E, S]) send(ctx context.Context, q HandleInput[I, S]) error {
	if err := vm.life.checkMainQueueOpen("Send"); err != nil {
		return err
	}
	vm.notify.inputQueued(ctx, q.Input)
	err := vm.inputs.Enqueue(ctx, q)
	if errors.Is(err, domain.ErrInputDropped) {
		vm.logger.Debug("Input dropped", "input", q.Input)
		vm.notify.inputDropped(ctx, q.Input)
		q.Completion.complete(OutcomeDropped, err)
	}
	return err
}

func (vm *ViewModel[I, E, S]) await(ctx context.Context, c *Completion) error {
	select {
	case <-c.Done():
		return c.Err()
	case <-vm.done:
		// Teardown resolves queued items before done closes.
		if c.Outcome() != OutcomePending {
			return c.Err()
		}
		return domain.ErrInputCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Filter implements StrategyScope.
func (vm *ViewModel[I, E, S]) Filter(ctx context.Context, q Queued[I, S]) bool {
	in, ok := q.(HandleInput[I, S])
	if !ok || vm.filter == nil {
		return true
	}
	if vm.filterInput(ctx, in.Input) == domain.Accept {
		return true
	}
	vm.logger.Debug("Input rejected", "input", in.Input)
	vm.notify.inputRejected(ctx, in.Input)
	in.Completion.complete(OutcomeRejected, domain.ErrInputRejected)
	return false
}

func (vm *ViewModel[I, E, S]) filterInput(ctx context.Context, input I) (res domain.FilterResult) {
	defer func() {
		if r := recover(); r != nil {
			vm.notify.unhandled(ctx, fmt.Errorf("input filter panicked: %v", r))
			res = domain.Reject
		}
	}()
	return vm.filter.FilterInput(vm.state.Value(), input)
}

// Process implements StrategyScope.
func (vm *ViewModel[I, E, S]) Process(ctx context.Context, q Queued[I, S], rollback bool) {
	if ctx.Err() != nil {
		vm.cancelItem(ctx, q)
		return
	}
	switch q := q.(type) {
	case HandleInput[I, S]:
		vm.processInput(ctx, q, rollback)
	case RestoreState[I, S]:
		vm.restoreState(ctx, q)
	}
}

func (vm *ViewModel[I, E, S]) processInput(ctx context.Context, q HandleInput[I, S], rollback bool) {
	vm.notify.inputAccepted(ctx, q.Input)

	snapshot, version := vm.state.Snapshot()

	inputCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	scope := newHandlerScope(inputCtx, vm)
	err := vm.invokeHandler(inputCtx, scope, q.Input)
	jobs, closeErr := scope.close()

	switch {
	case cancelledBy(inputCtx, err):
		if rollback && vm.state.Version() != version {
			vm.state.Set(snapshot)
		}
		vm.logger.Debug("Input cancelled", "input", q.Input, "rollback", rollback)
		vm.notify.inputCancelled(ctx, q.Input)
		q.Completion.complete(OutcomeCancelled, domain.ErrInputCancelled)

	case err != nil:
		if domain.IsUsageError(err) {
			vm.logger.Warn("Input handler misused its scope", append([]any{"input", q.Input, "err", err}, scope.usage()...)...)
		} else {
			vm.logger.Warn("Input handler failed", "input", q.Input, "err", err)
		}
		vm.notify.inputFailed(ctx, q.Input, err)
		q.Completion.complete(OutcomeFailed, err)

	case closeErr != nil:
		vm.logger.Warn("Input handler misused its scope", append([]any{"input", q.Input, "err", closeErr}, scope.usage()...)...)
		vm.notify.inputFailed(ctx, q.Input, closeErr)
		q.Completion.complete(OutcomeFailed, closeErr)

	default:
		vm.sideJobs.start(ctx, jobs)
		vm.notify.inputHandled(ctx, q.Input)
		q.Completion.complete(OutcomeHandled, nil)
	}
}

// cancelledBy reports whether the handler gave up because its context ended. A
// handler that finished despite a cancelled context succeeded or failed on its own.
func cancelledBy(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	cause := ctx.Err()
	return cause != nil && errors.Is(err, cause)
}

// invokeHandler converts panics and plain errors into HandlerErrors. Usage errors
// pass through untouched.
func (vm *ViewModel[I, E, S]) invokeHandler(ctx context.Context, scope *HandlerScope[I, E, S], input I) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewPanicError(r)
		}
	}()
	if err = vm.handler.HandleInput(ctx, scope, input); err != nil && !domain.IsUsageError(err) {
		var he *domain.HandlerError
		if !errors.As(err, &he) {
			err = &domain.HandlerError{Err: err}
		}
	}
	return err
}

func (vm *ViewModel[I, E, S]) restoreState(ctx context.Context, q RestoreState[I, S]) {
	if err := vm.life.checkStateChangeOpen("RestoreState"); err != nil {
		vm.notify.unhandled(ctx, err)
		q.Completion.complete(OutcomeFailed, err)
		return
	}
	vm.state.Set(q.State)
	vm.notify.stateRestored(ctx, q.State)
	q.Completion.complete(OutcomeHandled, nil)
}

func (vm *ViewModel[I, E, S]) emitEvent(ctx context.Context, event E) error {
	if err := vm.life.checkEventsOpen("PostEvent"); err != nil {
		return err
	}
	if err := vm.events.Enqueue(ctx, event); err != nil {
		return err
	}
	vm.notify.eventEmitted(ctx, event)
	return nil
}

func (vm *ViewModel[I, E, S]) dispatchEvent(ctx context.Context, event E) {
	if vm.eventHandler == nil {
		vm.logger.Debug("Event discarded, no event handler", "event", event)
		return
	}

	scope := &EventHandlerScope[I, E, S]{vm: vm}
	if err := vm.invokeEventHandler(ctx, scope, event); err != nil {
		vm.logger.Warn("Event handler failed", "event", event, "err", err)
		vm.notify.eventFailed(ctx, event, err)
		return
	}
	vm.notify.eventHandled(ctx, event)
}

func (vm *ViewModel[I, E, S]) invokeEventHandler(ctx context.Context, scope *EventHandlerScope[I, E, S], event E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewPanicError(r)
		}
	}()
	if err = vm.eventHandler.HandleEvent(ctx, scope, event); err != nil {
		err = &domain.HandlerError{Err: err}
	}
	return err
}
