package runner

import "log/slog"

// Option defines a functional option for configuring the Runner.
type Option func(*options)

type options struct {
	handler IOHandler
	logger  *slog.Logger
	signals bool
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(o *options) {
		o.handler = handler
	}
}

// WithSignals toggles SIGINT/SIGTERM handling. It is on by default.
func WithSignals(enabled bool) Option {
	return func(o *options) {
		o.signals = enabled
	}
}
