package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/runner"
	"github.com/aretw0/spindle/pkg/viewmodel"
)

type tally struct {
	Count int `json:"count"`
}

func parse(line string) (string, error) {
	switch line {
	case "inc", "dec", "boom", "blocked":
		return line, nil
	}
	return "", fmt.Errorf("unknown command")
}

func handle(_ context.Context, scope *viewmodel.HandlerScope[string, string, tally], in string) error {
	switch in {
	case "boom":
		_ = scope.NoOp()
		return errors.New("exploded")
	case "dec":
		return scope.UpdateState(func(s tally) tally { s.Count--; return s })
	}
	if err := scope.UpdateState(func(s tally) tally { s.Count++; return s }); err != nil {
		return err
	}
	return scope.PostEvent("incremented")
}

func setup(t *testing.T, handler runner.IOHandler) (*runner.Runner[string, string, tally], *viewmodel.ViewModel[string, string, tally]) {
	t.Helper()

	r := runner.New[string, string, tally](nil, parse,
		runner.WithInputHandler(handler),
		runner.WithSignals(false),
	)
	vm, err := viewmodel.New(viewmodel.Config[string, string, tally]{
		InputHandler: viewmodel.InputHandlerFunc[string, string, tally](handle),
		InputFilter: viewmodel.InputFilterFunc[string, tally](func(_ tally, in string) domain.FilterResult {
			if in == "blocked" {
				return domain.Reject
			}
			return domain.Accept
		}),
		Hooks: []domain.Hooks[string, string, tally]{r.Hooks()},
	})
	require.NoError(t, err)
	r.VM = vm

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, vm.Start(ctx))
	t.Cleanup(func() {
		cancel()
		<-vm.Done()
	})
	return r, vm
}

func TestRunner_TextSession(t *testing.T) {
	in := strings.NewReader("inc\n\ninc\ndec\nwhat\nboom\nblocked\n:state\nquit\ninc\n")
	out := &bytes.Buffer{}

	r, vm := setup(t, runner.NewTextHandler(in, out))
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, 1, vm.State().Count, "input after quit must not run")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		`event: "incremented"`,
		`state: {"count":1}`,
		`event: "incremented"`,
		`state: {"count":2}`,
		`state: {"count":1}`,
		`[System] cannot parse "what": unknown command`,
		`state: {"count":1}`,
		`error: handler failed: exploded`,
		`state: {"count":1}`,
		`error: input rejected by filter`,
		`state: {"count":1}`,
	}, lines)
}

func TestRunner_EOF(t *testing.T) {
	out := &bytes.Buffer{}
	r, vm := setup(t, runner.NewTextHandler(strings.NewReader("inc\ninc"), out))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 2, vm.State().Count)
}

func TestRunner_JSONSession(t *testing.T) {
	in := strings.NewReader("\"inc\"\ninc\nboom\n")
	out := &bytes.Buffer{}

	r, _ := setup(t, runner.NewJSONHandler(in, out))
	require.NoError(t, r.Run(context.Background()))

	dec := json.NewDecoder(out)
	var frames []runner.Frame
	for {
		var f runner.Frame
		if err := dec.Decode(&f); err == io.EOF {
			break
		} else {
			require.NoError(t, err)
		}
		frames = append(frames, f)
	}

	require.Len(t, frames, 3)
	assert.Equal(t, "inc", frames[0].Input)
	assert.Equal(t, map[string]any{"count": 1.0}, frames[0].State)
	assert.Equal(t, []any{"incremented"}, frames[0].Events)
	assert.Equal(t, map[string]any{"count": 2.0}, frames[1].State)
	assert.Equal(t, "handler failed: exploded", frames[2].Error)
	assert.Empty(t, frames[2].Events)
}

// blockingHandler never produces input until ctx is done.
type blockingHandler struct{ runner.IOHandler }

func (blockingHandler) Input(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunner_ContextCancelled(t *testing.T) {
	r, _ := setup(t, blockingHandler{runner.NewTextHandler(strings.NewReader(""), io.Discard)})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Run(ctx), context.DeadlineExceeded)
}
