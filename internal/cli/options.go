package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/spindle/internal/logging"
	"github.com/aretw0/spindle/pkg/config"
)

// Options carries what the commands resolved from flags and config files.
type Options struct {
	Settings config.Settings
	// SessionID names the saved State when Redis persistence is configured.
	SessionID string
	// JSON switches the REPL to JSON lines.
	JSON bool
	// Quiet suppresses the banner and system messages.
	Quiet bool

	Stdin  io.Reader
	Stdout io.Writer
	Logger *slog.Logger
}

func (o Options) stdin() io.Reader {
	if o.Stdin == nil {
		return os.Stdin
	}
	return o.Stdin
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}
