package viewmodel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrEventsClosed is returned by Enqueue once the EventStrategy stopped taking Events.
var ErrEventsClosed = errors.New("event queue closed")

// EventStrategy queues Events and delivers them strictly in order to a single
// dispatch function.
type EventStrategy[E any] interface {
	// Enqueue blocks while the buffer is full.
	Enqueue(ctx context.Context, event E) error
	// Close stops intake. Events already queued are still delivered.
	Close()
	// Flush waits until every Event queued before Close was dispatched.
	Flush(ctx context.Context) error
	// Run dispatches Events until Close drains the buffer or ctx is done.
	Run(ctx context.Context, dispatch func(context.Context, E)) error
}

type eventItem[E any] struct {
	event    E
	sentinel bool
}

// BufferedEventStrategy is a bounded FIFO of Events with a single consumer.
type BufferedEventStrategy[E any] struct {
	ch        chan eventItem[E]
	closing   chan struct{}
	drained   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	stopOnce  sync.Once
	mu        sync.RWMutex
}

// NewBufferedEventStrategy creates an EventStrategy holding up to capacity Events.
// A non-positive capacity selects the default of 64.
func NewBufferedEventStrategy[E any](capacity int) *BufferedEventStrategy[E] {
	if capacity <= 0 {
		capacity = 64
	}
	return &BufferedEventStrategy[E]{
		ch:      make(chan eventItem[E], capacity),
		closing: make(chan struct{}),
		drained: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *BufferedEventStrategy[E]) Enqueue(ctx context.Context, event E) error {
	// Holding the read lock keeps Close from slipping the sentinel in ahead of an
	// Enqueue that already passed the closing check.
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closing:
		return ErrEventsClosed
	default:
	}

	select {
	case s.ch <- eventItem[E]{event: event}:
		return nil
	case <-s.closing:
		return ErrEventsClosed
	case <-s.stopped:
		return ErrEventsClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BufferedEventStrategy[E]) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)

		s.mu.Lock()
		defer s.mu.Unlock()
		select {
		case s.ch <- eventItem[E]{sentinel: true}:
		case <-s.stopped:
		}
	})
}

func (s *BufferedEventStrategy[E]) Flush(ctx context.Context) error {
	select {
	case <-s.drained:
		return nil
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BufferedEventStrategy[E]) Run(ctx context.Context, dispatch func(context.Context, E)) error {
	defer s.stopOnce.Do(func() { close(s.stopped) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-s.ch:
			if item.sentinel {
				s.drain(ctx, dispatch)
				close(s.drained)
				return nil
			}
			dispatch(ctx, item.event)
		}
	}
}

// drain delivers anything that raced in behind the sentinel.
func (s *BufferedEventStrategy[E]) drain(ctx context.Context, dispatch func(context.Context, E)) {
	for {
		select {
		case item := <-s.ch:
			if !item.sentinel {
				dispatch(ctx, item.event)
			}
		default:
			return
		}
	}
}

// Len returns the number of buffered Events.
func (s *BufferedEventStrategy[E]) Len() int {
	return len(s.ch)
}

// EventHandlerScope is what an EventHandler may do while handling one Event.
type EventHandlerScope[I, E, S any] struct {
	vm *ViewModel[I, E, S]
}

// CurrentState returns the latest State.
func (s *EventHandlerScope[I, E, S]) CurrentState() S {
	return s.vm.state.Value()
}

// PostInput sends an Input back into the ViewModel, waiting for queue acceptance.
func (s *EventHandlerScope[I, E, S]) PostInput(ctx context.Context, input I) error {
	return s.vm.Send(ctx, input)
}

// Logger returns the ViewModel logger.
func (s *EventHandlerScope[I, E, S]) Logger() *slog.Logger {
	return s.vm.logger
}
