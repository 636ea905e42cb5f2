package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/spindle/internal/logging"
	"github.com/aretw0/spindle/pkg/domain"
)

// Driver is the part of a ViewModel the Runner drives.
type Driver[I, S any] interface {
	SendAndAwait(ctx context.Context, input I) error
	State() S
}

// ParseFunc turns a line into an Input.
type ParseFunc[I any] func(line string) (I, error)

// Runner reads lines, sends them as Inputs and reports what happened.
type Runner[I, E, S any] struct {
	VM      Driver[I, S]
	Parse   ParseFunc[I]
	Handler IOHandler
	Logger  *slog.Logger

	signals bool

	mu     sync.Mutex
	events []any
}

// New creates a Runner for vm. Unless WithInputHandler is given it talks to
// Stdin and Stdout through a TextHandler.
func New[I, E, S any](vm Driver[I, S], parse ParseFunc[I], opts ...Option) *Runner[I, E, S] {
	o := options{signals: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.handler == nil {
		o.handler = NewTextHandler(nil, nil)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return &Runner[I, E, S]{
		VM:      vm,
		Parse:   parse,
		Handler: o.handler,
		Logger:  o.logger,
		signals: o.signals,
	}
}

// Hooks collects emitted Events for the next Frame. Attach it to the ViewModel.
func (r *Runner[I, E, S]) Hooks() domain.Hooks[I, E, S] {
	return domain.Hooks[I, E, S]{
		OnEventEmitted: func(_ context.Context, e E) {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
		},
	}
}

func (r *Runner[I, E, S]) takeEvents() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

// Run executes the loop until the input is exhausted, a quit command is read,
// a signal arrives or ctx is done. Only the last case returns an error.
func (r *Runner[I, E, S]) Run(ctx context.Context) error {
	loopCtx := ctx
	var signals *SignalManager
	if r.signals {
		signals = NewSignalManager(ctx)
		defer signals.Stop()
		loopCtx = signals.Context()
	}

	for {
		line, err := r.Handler.Input(loopCtx)
		if err != nil {
			if signals != nil {
				signals.CheckRace()
				if signals.Interrupted() {
					r.Logger.Debug("runner: interrupted")
					_ = r.Handler.SystemOutput(ctx, "interrupted")
					return nil
				}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		done, err := r.step(loopCtx, line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// step handles one line. It reports whether the loop should end.
func (r *Runner[I, E, S]) step(ctx context.Context, line string) (bool, error) {
	switch strings.ToLower(line) {
	case "exit", "quit", ":quit", ":q":
		return true, nil
	case ":state":
		return false, r.Handler.Output(ctx, Frame{State: r.VM.State(), Events: r.takeEvents()})
	}

	input, err := r.Parse(line)
	if err != nil {
		return false, r.Handler.SystemOutput(ctx, fmt.Sprintf("cannot parse %q: %v", line, err))
	}

	frame := Frame{Input: line}
	if err := r.VM.SendAndAwait(ctx, input); err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		r.Logger.Debug("runner: input failed", "input", line, "err", err)
		frame.Error = err.Error()
	}
	frame.State = r.VM.State()
	frame.Events = r.takeEvents()
	return false, r.Handler.Output(ctx, frame)
}
