package viewmodel_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/viewmodel"
	"github.com/aretw0/spindle/pkg/vmtest"
)

type counter struct {
	Count int
}

// op is a test Input. Op selects the behaviour, the other fields parameterize it.
type op struct {
	Op    string
	Key   string
	Delay time.Duration
}

var (
	inc   = op{Op: "inc"}
	dec   = op{Op: "dec"}
	multi = op{Op: "multi"}
)

func slow(o op, d time.Duration) op {
	o.Delay = d
	return o
}

func sideJob(key string) op {
	return op{Op: "sidejob", Key: key}
}

type (
	testVM       = viewmodel.ViewModel[op, string, counter]
	testScope    = viewmodel.HandlerScope[op, string, counter]
	testRecorder = vmtest.Recorder[op, string, counter]
)

// leakedScope is set by the "leak" Input.
var leakedScope *testScope

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func add(delta int) func(counter) counter {
	return func(s counter) counter {
		s.Count += delta
		return s
	}
}

func handle(ctx context.Context, scope *testScope, in op) error {
	switch in.Op {
	case "inc", "dec":
		delta := 1
		if in.Op == "dec" {
			delta = -1
		}
		if err := scope.UpdateState(add(delta)); err != nil {
			return err
		}
		return wait(ctx, in.Delay)

	case "multi":
		if err := scope.UpdateState(add(1)); err != nil {
			return err
		}
		if err := wait(ctx, in.Delay); err != nil {
			return err
		}
		return scope.UpdateState(add(1))

	case "stubborn":
		if err := scope.UpdateState(add(10)); err != nil {
			return err
		}
		time.Sleep(in.Delay)
		return nil

	case "fail-after-cancel":
		if err := scope.UpdateState(add(1)); err != nil {
			return err
		}
		<-ctx.Done()
		return errors.New("cleanup failed")

	case "event":
		for _, e := range []string{in.Key + "-1", in.Key + "-2", in.Key + "-3"} {
			if err := scope.PostEvent(e); err != nil {
				return err
			}
		}
		return nil

	case "sidejob":
		return scope.SideJob(in.Key, func(ctx context.Context, _ *viewmodel.SideJobScope[op, string, counter]) error {
			<-ctx.Done()
			return ctx.Err()
		})

	case "sidejob-fail":
		return scope.SideJob(in.Key, func(context.Context, *viewmodel.SideJobScope[op, string, counter]) error {
			return errors.New("side-job broke")
		})

	case "sidejob-graceful":
		return scope.SideJob(in.Key, func(ctx context.Context, js *viewmodel.SideJobScope[op, string, counter]) error {
			js.SetGracePeriod(time.Minute)
			if err := js.PostEvent(ctx, "ready"); err != nil {
				return err
			}
			select {
			case <-js.Stopping():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

	case "state-after-sidejob":
		if err := scope.SideJob(in.Key, func(context.Context, *viewmodel.SideJobScope[op, string, counter]) error { return nil }); err != nil {
			return err
		}
		_, err := scope.CurrentState()
		return err

	case "state-after-sidejob-ignored":
		_ = scope.SideJob(in.Key, func(context.Context, *viewmodel.SideJobScope[op, string, counter]) error { return nil })
		_, _ = scope.CurrentState()
		return nil

	case "noop":
		return scope.NoOp()

	case "nothing", "forbidden":
		return nil

	case "fail":
		_ = scope.NoOp()
		return errors.New("boom")

	case "panic":
		panic("kaboom")

	case "leak":
		leakedScope = scope
		return scope.NoOp()
	}
	return errors.New("unknown op " + in.Op)
}

type option func(*viewmodel.Config[op, string, counter])

func withStrategy(s viewmodel.InputStrategy[op, counter]) option {
	return func(c *viewmodel.Config[op, string, counter]) { c.InputStrategy = s }
}

func withEventHandler(h viewmodel.EventHandlerFunc[op, string, counter]) option {
	return func(c *viewmodel.Config[op, string, counter]) { c.EventHandler = h }
}

func withLogger(l *slog.Logger) option {
	return func(c *viewmodel.Config[op, string, counter]) { c.Logger = l }
}

func withHooks(h domain.Hooks[op, string, counter]) option {
	return func(c *viewmodel.Config[op, string, counter]) { c.Hooks = append(c.Hooks, h) }
}

func rejectForbidden() option {
	return func(c *viewmodel.Config[op, string, counter]) {
		c.InputFilter = viewmodel.InputFilterFunc[op, counter](func(_ counter, in op) domain.FilterResult {
			if in.Op == "forbidden" {
				return domain.Reject
			}
			return domain.Accept
		})
	}
}

// start builds and starts a ViewModel with a Recorder attached. The ViewModel is
// torn down when the test ends.
func start(t *testing.T, opts ...option) (*testVM, *testRecorder, context.CancelFunc) {
	t.Helper()

	rec := vmtest.NewRecorder[op, string, counter]()
	cfg := viewmodel.Config[op, string, counter]{
		Name:         "test",
		InputHandler: viewmodel.InputHandlerFunc[op, string, counter](handle),
		Hooks:        []domain.Hooks[op, string, counter]{rec.Hooks()},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	vm, err := viewmodel.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, vm.Start(ctx))

	t.Cleanup(func() {
		cancel()
		select {
		case <-vm.Done():
		case <-time.After(5 * time.Second):
			t.Error("viewmodel did not shut down")
		}
	})
	return vm, rec, cancel
}

func counts(states []counter) []int {
	out := make([]int, len(states))
	for i, s := range states {
		out[i] = s.Count
	}
	return out
}
