// Package counter is the demo domain served by the spindle binary: a counter
// with slow updates, a ticking side-job and milestone events.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/spindle/pkg/config"
	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/viewmodel"
)

// Kind names an Input.
type Kind string

const (
	Increment Kind = "increment"
	Decrement Kind = "decrement"
	// Multiple adds 1, waits Delay, then adds 1 again.
	Multiple  Kind = "multiple"
	StartTick Kind = "tick_start"
	StopTick  Kind = "tick_stop"
	Tick      Kind = "tick"
	Fail      Kind = "fail"
	Reset     Kind = "reset"
)

// MilestoneEvery is the step between milestone events.
const MilestoneEvery = 10

// DefaultTickInterval is used when StartTick carries no Delay.
const DefaultTickInterval = time.Second

const tickerKey = "ticker"

// State is the counter value plus the ticker status.
type State struct {
	Count   int  `json:"count"`
	Ticks   int  `json:"ticks"`
	Ticking bool `json:"ticking"`
}

// Input is one request to the counter. N defaults to 1; Delay makes increments and
// decrements slow, and sets the tick interval for StartTick.
type Input struct {
	Kind  Kind            `json:"kind"`
	N     int             `json:"n,omitempty"`
	Delay config.Duration `json:"delay,omitempty"`
}

func (in Input) String() string {
	var b strings.Builder
	b.WriteString(string(in.Kind))
	if in.N > 1 {
		fmt.Fprintf(&b, " %d", in.N)
	}
	if in.Delay > 0 {
		fmt.Fprintf(&b, " %s", time.Duration(in.Delay))
	}
	return b.String()
}

func (in Input) amount() int {
	if in.N <= 0 {
		return 1
	}
	return in.N
}

// Event reports something worth telling the outside world.
type Event struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// ErrFailRequested is what the Fail input fails with.
var ErrFailRequested = errors.New("failure requested")

type (
	scope    = viewmodel.HandlerScope[Input, Event, State]
	jobScope = viewmodel.SideJobScope[Input, Event, State]
)

// Config returns the ViewModel configuration of the counter.
func Config() viewmodel.Config[Input, Event, State] {
	return viewmodel.Config[Input, Event, State]{
		Name:         "counter",
		InputHandler: viewmodel.InputHandlerFunc[Input, Event, State](Handle),
		EventHandler: viewmodel.EventHandlerFunc[Input, Event, State](logEvent),
		InputFilter:  viewmodel.InputFilterFunc[Input, State](Filter),
	}
}

// Filter drops ticks that arrive after the ticker was stopped.
func Filter(s State, in Input) domain.FilterResult {
	if in.Kind == Tick && !s.Ticking {
		return domain.Reject
	}
	return domain.Accept
}

// Handle applies one Input.
func Handle(ctx context.Context, sc *scope, in Input) error {
	switch in.Kind {
	case Increment, Decrement:
		delta := in.amount()
		if in.Kind == Decrement {
			delta = -delta
		}
		if err := add(sc, delta); err != nil {
			return err
		}
		return sleep(ctx, time.Duration(in.Delay))

	case Multiple:
		if err := add(sc, 1); err != nil {
			return err
		}
		if err := sleep(ctx, time.Duration(in.Delay)); err != nil {
			return err
		}
		return add(sc, 1)

	case Reset:
		return sc.UpdateState(func(s State) State {
			s.Count = 0
			return s
		})

	case Tick:
		return sc.UpdateState(func(s State) State {
			s.Ticks++
			return s
		})

	case StartTick:
		if err := sc.UpdateState(func(s State) State {
			s.Ticking = true
			return s
		}); err != nil {
			return err
		}
		interval := time.Duration(in.Delay)
		if interval <= 0 {
			interval = DefaultTickInterval
		}
		return sc.SideJob(tickerKey, ticker(interval))

	case StopTick:
		return sc.UpdateState(func(s State) State {
			s.Ticking = false
			return s
		})

	case Fail:
		_ = sc.NoOp()
		return ErrFailRequested
	}
	_ = sc.NoOp()
	return fmt.Errorf("unknown input kind %q", in.Kind)
}

// add moves the counter and posts a milestone event when it lands on a multiple
// of MilestoneEvery.
func add(sc *scope, delta int) error {
	next, err := sc.UpdateStateAndGet(func(s State) State {
		s.Count += delta
		return s
	})
	if err != nil {
		return err
	}
	if next.Count != 0 && next.Count%MilestoneEvery == 0 {
		return sc.PostEvent(Event{Kind: "milestone", Count: next.Count})
	}
	return nil
}

// ticker posts a Tick every interval until the ticker is stopped.
func ticker(interval time.Duration) viewmodel.SideJobFunc[Input, Event, State] {
	return func(ctx context.Context, js *jobScope) error {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-js.Stopping():
				return nil
			case <-t.C:
			}
			if !js.CurrentState().Ticking {
				return nil
			}
			if err := js.PostInput(ctx, Input{Kind: Tick}); err != nil {
				return err
			}
		}
	}
}

func logEvent(_ context.Context, sc *viewmodel.EventHandlerScope[Input, Event, State], e Event) error {
	sc.Logger().Info("counter event", "kind", e.Kind, "count", e.Count)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Parse reads a REPL line: "inc [n] [delay]", "dec [n] [delay]", "multi [delay]",
// "reset", "tick start [interval]", "tick stop" or "fail".
func Parse(line string) (Input, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Input{}, errors.New("empty input")
	}

	var in Input
	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "inc", "increment", "+":
		in.Kind = Increment
	case "dec", "decrement", "-":
		in.Kind = Decrement
	case "multi", "multiple":
		in.Kind = Multiple
	case "reset":
		in.Kind = Reset
	case "fail":
		in.Kind = Fail
	case "tick":
		if len(args) == 0 {
			return Input{}, errors.New("usage: tick start [interval] | tick stop")
		}
		switch args[0] {
		case "start":
			in.Kind = StartTick
		case "stop":
			in.Kind = StopTick
		default:
			return Input{}, fmt.Errorf("unknown tick command %q", args[0])
		}
		args = args[1:]
	default:
		return Input{}, fmt.Errorf("unknown command %q", fields[0])
	}

	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			in.N = n
			continue
		}
		d, err := time.ParseDuration(arg)
		if err != nil {
			return Input{}, fmt.Errorf("invalid argument %q", arg)
		}
		in.Delay = config.Duration(d)
	}
	return in, nil
}
