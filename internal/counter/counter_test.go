package counter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/spindle/internal/counter"
	"github.com/aretw0/spindle/pkg/config"
	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/viewmodel"
	"github.com/aretw0/spindle/pkg/vmtest"
)

type recorder = vmtest.Recorder[counter.Input, counter.Event, counter.State]

func start(t *testing.T, strategy string) (*viewmodel.ViewModel[counter.Input, counter.Event, counter.State], *recorder) {
	t.Helper()

	rec := vmtest.NewRecorder[counter.Input, counter.Event, counter.State]()
	cfg := counter.Config()
	cfg.Hooks = append(cfg.Hooks, rec.Hooks())

	s := config.Defaults()
	s.Inputs.Strategy = strategy
	require.NoError(t, config.Apply(s, &cfg))

	vm, err := viewmodel.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, vm.Start(ctx))
	t.Cleanup(func() {
		cancel()
		<-vm.Done()
	})
	return vm, rec
}

func kinds(inputs []counter.Input) []counter.Kind {
	out := make([]counter.Kind, len(inputs))
	for i, in := range inputs {
		out[i] = in.Kind
	}
	return out
}

func TestLIFO_IncrementThenDecrement(t *testing.T) {
	vm, rec := start(t, viewmodel.StrategyLIFO)
	ctx := context.Background()
	slow := config.Duration(time.Second)

	require.NoError(t, vm.Send(ctx, counter.Input{Kind: counter.Increment, Delay: slow}))
	require.Eventually(t, func() bool { return vm.State().Count == 1 }, time.Second, time.Millisecond)
	require.NoError(t, vm.SendAndAwait(ctx, counter.Input{Kind: counter.Decrement, Delay: config.Duration(10 * time.Millisecond)}))

	assert.Equal(t, -1, vm.State().Count)
	assert.Equal(t, []counter.Kind{counter.Increment}, kinds(rec.CancelledInputs()))
	assert.Equal(t, []counter.Kind{counter.Decrement}, kinds(rec.SuccessfulInputs()))
}

func TestFIFO_MultipleStateUpdates(t *testing.T) {
	vm, rec := start(t, viewmodel.StrategyFIFO)
	ctx := context.Background()

	for range 2 {
		require.NoError(t, vm.Send(ctx, counter.Input{Kind: counter.Multiple, Delay: config.Duration(5 * time.Millisecond)}))
	}
	require.NoError(t, vm.SendAndAwait(ctx, counter.Input{Kind: counter.Multiple}))

	assert.Equal(t, 6, vm.State().Count)
	assert.Equal(t, []counter.Kind{counter.Multiple, counter.Multiple, counter.Multiple}, kinds(rec.SuccessfulInputs()))
}

func TestMilestoneEvents(t *testing.T) {
	vm, rec := start(t, viewmodel.StrategyFIFO)
	ctx := context.Background()

	require.NoError(t, vm.SendAndAwait(ctx, counter.Input{Kind: counter.Increment, N: 9}))
	assert.Empty(t, rec.Events())

	require.NoError(t, vm.SendAndAwait(ctx, counter.Input{Kind: counter.Increment}))
	require.NoError(t, vm.SendAndAwait(ctx, counter.Input{Kind: counter.Increment, N: 10}))
	assert.Equal(t, []counter.Event{
		{Kind: "milestone", Count: 10},
		{Kind: "milestone", Count: 20},
	}, rec.Events())

	require.NoError(t, vm.SendAndAwait(ctx, counter.Input{Kind: counter.Reset}))
	assert.Equal(t, 0, vm.State().Count)
}

func TestTicker(t *testing.T) {
	vm, rec := start(t, viewmodel.StrategyFIFO)
	ctx := context.Background()

	require.NoError(t, vm.SendAndAwait(ctx, counter.Input{Kind: counter.StartTick, Delay: config.Duration(5 * time.Millisecond)}))
	assert.True(t, vm.State().Ticking)
	require.Eventually(t, func() bool { return vm.State().Ticks >= 3 }, 2*time.Second, time.Millisecond)

	require.NoError(t, vm.SendAndAwait(ctx, counter.Input{Kind: counter.StopTick}))
	require.Eventually(t, func() bool { return len(rec.SideJobsCompleted()) == 1 }, 2*time.Second, time.Millisecond)

	ticks := vm.State().Ticks
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, ticks, vm.State().Ticks, "no ticks after stop")
	assert.Equal(t, []vmtest.SideJobRecord{{Key: "ticker", RestartState: domain.Initial}}, rec.SideJobsStarted())
}

func TestTickRejectedWhenStopped(t *testing.T) {
	vm, rec := start(t, viewmodel.StrategyFIFO)

	err := vm.SendAndAwait(context.Background(), counter.Input{Kind: counter.Tick})
	assert.ErrorIs(t, err, domain.ErrInputRejected)
	assert.Len(t, rec.RejectedInputs(), 1)
	assert.Zero(t, vm.State().Ticks)
}

func TestFail(t *testing.T) {
	vm, _ := start(t, viewmodel.StrategyFIFO)

	err := vm.SendAndAwait(context.Background(), counter.Input{Kind: counter.Fail})
	assert.ErrorIs(t, err, counter.ErrFailRequested)

	err = vm.SendAndAwait(context.Background(), counter.Input{Kind: "bogus"})
	assert.ErrorContains(t, err, `unknown input kind "bogus"`)
}

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want counter.Input
		err  bool
	}{
		{line: "inc", want: counter.Input{Kind: counter.Increment}},
		{line: "+ 3", want: counter.Input{Kind: counter.Increment, N: 3}},
		{line: "dec 2 500ms", want: counter.Input{Kind: counter.Decrement, N: 2, Delay: config.Duration(500 * time.Millisecond)}},
		{line: "multi 1s", want: counter.Input{Kind: counter.Multiple, Delay: config.Duration(time.Second)}},
		{line: "reset", want: counter.Input{Kind: counter.Reset}},
		{line: "tick start 250ms", want: counter.Input{Kind: counter.StartTick, Delay: config.Duration(250 * time.Millisecond)}},
		{line: "tick stop", want: counter.Input{Kind: counter.StopTick}},
		{line: "fail", want: counter.Input{Kind: counter.Fail}},
		{line: "tick", err: true},
		{line: "tick pause", err: true},
		{line: "inc soon", err: true},
		{line: "jump", err: true},
		{line: "   ", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := counter.Parse(tt.line)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInputString(t *testing.T) {
	assert.Equal(t, "increment", counter.Input{Kind: counter.Increment}.String())
	assert.Equal(t, "decrement 3 1s", counter.Input{Kind: counter.Decrement, N: 3, Delay: config.Duration(time.Second)}.String())
}
