package spindle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/spindle"
	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/vmtest"
)

type intent struct {
	Delta int
	Slow  bool
}

func slowAdd(ctx context.Context, scope *spindle.HandlerScope[intent, string, int], in intent) error {
	if err := scope.UpdateState(func(n int) int { return n + in.Delta }); err != nil {
		return err
	}
	if !in.Slow {
		return nil
	}
	select {
	case <-time.After(time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestFacade_LIFORollsBackSupersededInput(t *testing.T) {
	rec := vmtest.NewRecorder[intent, string, int]()
	vm, err := spindle.New(spindle.Config[intent, string, int]{
		InputHandler:  spindle.InputHandlerFunc[intent, string, int](slowAdd),
		InputStrategy: spindle.NewLIFO[intent, int](),
		Hooks:         []spindle.Hooks[intent, string, int]{rec.Hooks()},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, vm.Start(ctx))

	states := vm.Observe(ctx)
	assert.Equal(t, 0, <-states)

	require.NoError(t, vm.Send(ctx, intent{Delta: 1, Slow: true}))
	assert.Equal(t, 1, <-states)

	require.NoError(t, vm.SendAndAwait(ctx, intent{Delta: -1}))
	assert.Equal(t, 0, <-states, "rollback to the value before the cancelled Input")
	assert.Equal(t, -1, <-states)

	assert.Equal(t, []intent{{Delta: 1, Slow: true}}, rec.CancelledInputs())
	assert.Equal(t, []intent{{Delta: -1}}, rec.SuccessfulInputs())

	require.NoError(t, vm.Close(context.Background()))
	assert.Equal(t, domain.PhaseCleared, vm.Phase())
}

func TestFacade_Strategies(t *testing.T) {
	for name, strategy := range map[string]spindle.InputStrategy[intent, int]{
		"fifo":     spindle.NewFIFO[intent, int](),
		"lifo":     spindle.NewLIFO[intent, int](),
		"parallel": spindle.NewParallel[intent, int](),
	} {
		t.Run(name, func(t *testing.T) {
			vm, err := spindle.New(spindle.Config[intent, string, int]{
				InputHandler:  spindle.InputHandlerFunc[intent, string, int](slowAdd),
				InputStrategy: strategy,
			})
			require.NoError(t, err)
			assert.Equal(t, name, vm.Strategy())

			ctx := context.Background()
			require.NoError(t, vm.Start(ctx))
			require.NoError(t, vm.SendAndAwait(ctx, intent{Delta: 2}))
			require.NoError(t, vm.Close(ctx))
			assert.Equal(t, 2, vm.State())
		})
	}
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, spindle.Version)
}
