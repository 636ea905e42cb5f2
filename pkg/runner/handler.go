package runner

import "context"

// Frame is what the Runner reports after each line.
type Frame struct {
	Input  string `json:"input,omitempty"`
	State  any    `json:"state"`
	Events []any  `json:"events,omitempty"`
	Error  string `json:"error,omitempty"`
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI) and JSON (Structured) modes.
type IOHandler interface {
	// Input reads the next line. It returns io.EOF when the source is exhausted.
	Input(ctx context.Context) (string, error)

	// Output presents the result of one line.
	Output(ctx context.Context, frame Frame) error

	// SystemOutput presents a meta-message to the user (e.g. usage errors, status updates).
	// This is distinct from Frames.
	SystemOutput(ctx context.Context, msg string) error
}
