/*
Package runner drives a ViewModel from a line-oriented terminal or pipe.

Each line read by the IOHandler is parsed into an Input, sent with SendAndAwait,
and answered with a Frame holding the resulting State, the Events emitted since
the previous Frame and the error, if any. Ctrl+C and SIGTERM end the loop.

# Key Components

  - Runner: the read, send, print loop.
  - IOHandler: decouples how lines come in and Frames go out.
  - TextHandler: interactive CLI usage, coloured when writing to a terminal.
  - JSONHandler: one JSON Frame per line, for scripts and pipes.

# Usage

	r := runner.New[Input, Event, State](vm, parse,
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	cfg.Hooks = append(cfg.Hooks, r.Hooks())

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}

Lines starting with ':' are commands: ":state" prints the current State, ":quit"
(or "exit", "quit") ends the loop.
*/
package runner
