package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/observability"
	"github.com/aretw0/spindle/pkg/viewmodel"
)

type step struct {
	N    int
	Fail bool
	Job  string
}

func newVM(t *testing.T, hooks ...domain.Hooks[step, string, int]) *viewmodel.ViewModel[step, string, int] {
	t.Helper()
	vm, err := viewmodel.New(viewmodel.Config[step, string, int]{
		Name: "obs",
		InputHandler: viewmodel.InputHandlerFunc[step, string, int](
			func(_ context.Context, scope *viewmodel.HandlerScope[step, string, int], in step) error {
				switch {
				case in.Fail:
					_ = scope.NoOp()
					return errors.New("nope")
				case in.Job != "":
					return scope.SideJob(in.Job, func(context.Context, *viewmodel.SideJobScope[step, string, int]) error {
						return nil
					})
				}
				if err := scope.UpdateState(func(s int) int { return s + in.N }); err != nil {
					return err
				}
				return scope.PostEvent("added")
			}),
		InputFilter: viewmodel.InputFilterFunc[step, int](func(_ int, in step) domain.FilterResult {
			if in.N < 0 {
				return domain.Reject
			}
			return domain.Accept
		}),
		Hooks: hooks,
	})
	require.NoError(t, err)
	require.NoError(t, vm.Start(context.Background()))
	return vm
}

func TestMetricsHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	vm := newVM(t, observability.MetricsHooks[step, string, int](m, "obs"))
	ctx := context.Background()

	require.NoError(t, vm.SendAndAwait(ctx, step{N: 1}))
	require.NoError(t, vm.SendAndAwait(ctx, step{N: 2}))
	require.ErrorIs(t, vm.SendAndAwait(ctx, step{N: -1}), domain.ErrInputRejected)
	require.Error(t, vm.SendAndAwait(ctx, step{Fail: true}))
	require.NoError(t, vm.SendAndAwait(ctx, step{Job: "tick"}))
	require.NoError(t, vm.Close(ctx))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Inputs.WithLabelValues("obs", observability.OutcomeQueued)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Inputs.WithLabelValues("obs", observability.OutcomeAccepted)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Inputs.WithLabelValues("obs", observability.OutcomeHandled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inputs.WithLabelValues("obs", observability.OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inputs.WithLabelValues("obs", observability.OutcomeFailed)))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("obs", observability.OutcomeEmitted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.States.WithLabelValues("obs", observability.OutcomeEmitted)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideJobs.WithLabelValues("obs", "tick", "initial", observability.OutcomeStarted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideJobs.WithLabelValues("obs", "tick", "initial", observability.OutcomeCompleted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SideJobsRunning.WithLabelValues("obs", "tick")))
}

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	assert.Panics(t, func() { observability.NewMetrics(reg) }, "duplicate registration must fail")

	assert.NotPanics(t, func() { observability.NewMetrics(nil) })
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	vm := newVM(t, observability.LoggingHooks[step, string, int](logger))
	ctx := context.Background()

	require.NoError(t, vm.SendAndAwait(ctx, step{N: 1}))
	require.Error(t, vm.SendAndAwait(ctx, step{Fail: true}))
	require.NoError(t, vm.Close(ctx))

	select {
	case <-vm.Done():
	case <-time.After(time.Second):
		t.Fatal("viewmodel not cleared")
	}

	out := buf.String()
	for _, msg := range []string{
		"viewmodel_started", "input_queued", "input_handled", "state_emitted",
		"event_emitted", "input_failed", "viewmodel_cleared",
	} {
		assert.Contains(t, out, "msg="+msg)
	}
	assert.Contains(t, out, "handler failed: nope")
}
