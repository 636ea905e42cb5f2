package viewmodel

import (
	"context"
	"fmt"

	"github.com/aretw0/spindle/pkg/domain"
)

// Overflow is the policy applied when an Input arrives at a full queue.
type Overflow int

const (
	// OverflowSuspend blocks the sender until there is room.
	OverflowSuspend Overflow = iota
	// OverflowDropLatest discards the arriving Input.
	OverflowDropLatest
)

func (o Overflow) String() string {
	if o == OverflowDropLatest {
		return "drop_latest"
	}
	return "suspend"
}

// ParseOverflow maps a config value to an Overflow.
func ParseOverflow(s string) (Overflow, error) {
	switch s {
	case "", "suspend":
		return OverflowSuspend, nil
	case "drop_latest", "drop-latest":
		return OverflowDropLatest, nil
	}
	return OverflowSuspend, fmt.Errorf("unknown overflow policy %q", s)
}

// QueueOptions configures the channel behind an InputStrategy.
type QueueOptions struct {
	Capacity int
	Overflow Overflow
}

// QueueOption mutates QueueOptions.
type QueueOption func(*QueueOptions)

// WithCapacity sets the number of Inputs buffered before the overflow policy applies.
// Zero means an unbuffered hand-off.
func WithCapacity(n int) QueueOption {
	return func(o *QueueOptions) {
		if n >= 0 {
			o.Capacity = n
		}
	}
}

// WithOverflow sets the overflow policy.
func WithOverflow(p Overflow) QueueOption {
	return func(o *QueueOptions) {
		o.Overflow = p
	}
}

// channelQueue is the queue shared by every channel-backed strategy.
// Control items (RestoreState, ShutDownGracefully) are never dropped.
type channelQueue[I, S any] struct {
	ch       chan Queued[I, S]
	overflow Overflow
}

func newChannelQueue[I, S any](defaults QueueOptions, opts []QueueOption) *channelQueue[I, S] {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}
	return &channelQueue[I, S]{
		ch:       make(chan Queued[I, S], o.Capacity),
		overflow: o.Overflow,
	}
}

func (q *channelQueue[I, S]) Enqueue(ctx context.Context, item Queued[I, S]) error {
	if _, isInput := item.(HandleInput[I, S]); isInput && q.overflow == OverflowDropLatest {
		select {
		case q.ch <- item:
			return nil
		default:
			return domain.ErrInputDropped
		}
	}

	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *channelQueue[I, S]) TryEnqueue(item Queued[I, S]) domain.SendResult {
	select {
	case q.ch <- item:
		return domain.SendAccepted
	default:
		return domain.SendRejected
	}
}

func (q *channelQueue[I, S]) receive() <-chan Queued[I, S] {
	return q.ch
}

// Drain empties the buffer without blocking.
func (q *channelQueue[I, S]) Drain() []Queued[I, S] {
	var items []Queued[I, S]
	for {
		select {
		case item := <-q.ch:
			items = append(items, item)
		default:
			return items
		}
	}
}

// Len returns the number of buffered items.
func (q *channelQueue[I, S]) Len() int {
	return len(q.ch)
}
