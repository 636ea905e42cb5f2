package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/spindle"
	"github.com/aretw0/spindle/internal/counter"
	"github.com/aretw0/spindle/internal/presentation/tui"
	"github.com/aretw0/spindle/pkg/runner"
)

// RunSession runs the counter REPL until the input ends, the user quits or ctx is done.
func RunSession(ctx context.Context, opts Options) error {
	logger := opts.logger()
	out := opts.stdout()

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.stdin(), out)
	} else {
		handler = runner.NewTextHandler(opts.stdin(), out)
	}
	quiet := opts.Quiet || opts.JSON

	r := runner.New[counter.Input, counter.Event, counter.State](nil, counter.Parse,
		runner.WithInputHandler(handler),
		runner.WithLogger(logger),
		// Signals are owned by the caller's context.
		runner.WithSignals(false),
	)
	vm, err := createCounter(opts.Settings, logger, nil, r.Hooks())
	if err != nil {
		return err
	}
	r.VM = vm

	if !quiet {
		tui.PrintBanner(out, spindle.Version)
	}

	// The ViewModel outlives ctx so that it can be closed gracefully below.
	if err := vm.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	persisted, err := setupPersistence(context.WithoutCancel(ctx), opts.Settings, opts.SessionID, vm, logger)
	if err != nil {
		_ = closeViewModel(vm)
		return err
	}
	if !quiet {
		if opts.SessionID != "" && (opts.Settings.Redis.Addr != "" || opts.Settings.Store.Dir != "") {
			printSystemMessage(out, "Session '%s' active, count=%d.", opts.SessionID, vm.State().Count)
		}
		printSystemMessage(out, "Strategy %s. Try: inc, dec 2 1s, multi, tick start 500ms, tick stop, :state, quit", vm.Strategy())
	}

	runErr := r.Run(ctx)
	closeErr := closeViewModel(vm)
	persisted()

	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if err := errors.Join(runErr, closeErr); err != nil {
		return fmt.Errorf("session failed: %w", err)
	}
	return nil
}
