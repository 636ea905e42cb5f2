package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/spindle/pkg/domain"
)

// LoggingHooks writes every notification to logger. Per-item traffic goes to Debug,
// lifecycle changes to Info, failures to Warn and Error.
func LoggingHooks[I, E, S any](logger *slog.Logger) domain.Hooks[I, E, S] {
	debugInput := func(msg string) func(context.Context, I) {
		return func(ctx context.Context, in I) {
			logger.DebugContext(ctx, msg, "input", in)
		}
	}
	sideJob := func(level slog.Level, msg string) func(context.Context, string, domain.RestartState) {
		return func(ctx context.Context, key string, rs domain.RestartState) {
			logger.Log(ctx, level, msg, "key", key, "restart", rs.String())
		}
	}

	return domain.Hooks[I, E, S]{
		OnViewModelStarted: func(ctx context.Context, name string) {
			logger.InfoContext(ctx, "viewmodel_started", "viewmodel", name)
		},
		OnViewModelCleared: func(ctx context.Context, name string) {
			logger.InfoContext(ctx, "viewmodel_cleared", "viewmodel", name)
		},

		OnInputQueued:              debugInput("input_queued"),
		OnInputAccepted:            debugInput("input_accepted"),
		OnInputHandledSuccessfully: debugInput("input_handled"),
		OnInputCancelled:           debugInput("input_cancelled"),
		OnInputRejected: func(ctx context.Context, in I) {
			logger.InfoContext(ctx, "input_rejected", "input", in)
		},
		OnInputDropped: func(ctx context.Context, in I) {
			logger.WarnContext(ctx, "input_dropped", "input", in)
		},
		OnInputHandlerError: func(ctx context.Context, in I, err error) {
			logger.ErrorContext(ctx, "input_failed", "input", in, "err", err)
		},

		OnEventEmitted: func(ctx context.Context, e E) {
			logger.DebugContext(ctx, "event_emitted", "event", e)
		},
		OnEventHandledSuccessfully: func(ctx context.Context, e E) {
			logger.DebugContext(ctx, "event_handled", "event", e)
		},
		OnEventHandlerError: func(ctx context.Context, e E, err error) {
			logger.ErrorContext(ctx, "event_failed", "event", e, "err", err)
		},

		OnStateEmitted: func(ctx context.Context, s S) {
			logger.DebugContext(ctx, "state_emitted", "state", s)
		},
		OnStateRestored: func(ctx context.Context, s S) {
			logger.InfoContext(ctx, "state_restored", "state", s)
		},

		OnSideJobQueued: func(ctx context.Context, key string) {
			logger.DebugContext(ctx, "side_job_queued", "key", key)
		},
		OnSideJobStarted:   sideJob(slog.LevelDebug, "side_job_started"),
		OnSideJobCompleted: sideJob(slog.LevelDebug, "side_job_completed"),
		OnSideJobCancelled: sideJob(slog.LevelDebug, "side_job_cancelled"),
		OnSideJobError: func(ctx context.Context, key string, rs domain.RestartState, err error) {
			logger.WarnContext(ctx, "side_job_failed", "key", key, "restart", rs.String(), "err", err)
		},

		OnUnhandledError: func(ctx context.Context, err error) {
			logger.ErrorContext(ctx, "unhandled_error", "err", err)
		},
	}
}
