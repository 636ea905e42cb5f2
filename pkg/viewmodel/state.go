package viewmodel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// StateFlow is the single source of truth for a ViewModel's State.
//
// Writes go through a versioned compare-and-swap so that concurrent writers (the
// Parallel strategy) never lose updates. Every committed version is delivered, in
// commit order, to every subscriber; a slow subscriber only delays itself.
type StateFlow[S any] struct {
	mu      sync.Mutex
	value   S
	version uint64
	closed  bool

	subs    *xsync.MapOf[uint64, *subscriber[S]]
	nextSub atomic.Uint64

	// onCommit runs outside mu, one version at a time in commit order. It must
	// not commit to the same flow.
	onCommit func(S)
	emitMu   sync.Mutex
	emitCond *sync.Cond
	emitted  uint64
}

// NewStateFlow creates a StateFlow holding initial at version 0.
func NewStateFlow[S any](initial S) *StateFlow[S] {
	f := &StateFlow[S]{
		value: initial,
		subs:  xsync.NewMapOf[uint64, *subscriber[S]](),
	}
	f.emitCond = sync.NewCond(&f.emitMu)
	return f
}

// Value returns the current state.
func (f *StateFlow[S]) Value() S {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Version returns the number of commits so far.
func (f *StateFlow[S]) Version() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

// Snapshot returns the current state together with its version.
func (f *StateFlow[S]) Snapshot() (S, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.version
}

// CompareAndSet commits next only if no other commit happened since version.
func (f *StateFlow[S]) CompareAndSet(version uint64, next S) bool {
	f.mu.Lock()
	if f.version != version {
		f.mu.Unlock()
		return false
	}
	v := f.commitLocked(next)
	f.mu.Unlock()

	f.emit(v, next)
	return true
}

// Update applies fn until it commits without interference and returns the replaced
// and the committed values. fn may run more than once under contention, so it must
// be free of side effects.
func (f *StateFlow[S]) Update(fn func(S) S) (old, next S) {
	for {
		current, version := f.Snapshot()
		candidate := fn(current)
		if f.CompareAndSet(version, candidate) {
			return current, candidate
		}
	}
}

// Set unconditionally commits next.
func (f *StateFlow[S]) Set(next S) {
	f.mu.Lock()
	v := f.commitLocked(next)
	f.mu.Unlock()

	f.emit(v, next)
}

// Observe returns a channel receiving the current state followed by every later
// commit. The channel is closed when ctx is done or the flow is closed.
func (f *StateFlow[S]) Observe(ctx context.Context) <-chan S {
	sub := f.subscribe()
	out := make(chan S)

	go func() {
		defer close(out)
		defer f.subs.Delete(sub.id)

		for {
			for {
				v, ok := sub.pop()
				if !ok {
					break
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case _, open := <-sub.signal:
				if !open && sub.len() == 0 {
					return
				}
			}
		}
	}()

	return out
}

// Subscribers returns the number of live observers.
func (f *StateFlow[S]) Subscribers() int {
	return f.subs.Size()
}

// close ends every subscription once its backlog is delivered.
func (f *StateFlow[S]) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.subs.Range(func(_ uint64, sub *subscriber[S]) bool {
		sub.close()
		return true
	})
}

func (f *StateFlow[S]) subscribe() *subscriber[S] {
	sub := newSubscriber[S](f.nextSub.Add(1))

	// Registering under mu guarantees the subscriber sees the current value first
	// and then exactly the commits that follow it.
	f.mu.Lock()
	defer f.mu.Unlock()

	sub.push(f.value)
	if f.closed {
		sub.close()
		return sub
	}
	f.subs.Store(sub.id, sub)
	return sub
}

// commitLocked must be called with mu held. It returns the committed version.
func (f *StateFlow[S]) commitLocked(next S) uint64 {
	f.value = next
	f.version++
	f.subs.Range(func(_ uint64, sub *subscriber[S]) bool {
		sub.push(next)
		return true
	})
	return f.version
}

// emit waits for every earlier version to be emitted, then runs onCommit.
func (f *StateFlow[S]) emit(version uint64, next S) {
	f.emitMu.Lock()
	for f.emitted != version-1 {
		f.emitCond.Wait()
	}
	f.emitMu.Unlock()

	defer func() {
		f.emitMu.Lock()
		f.emitted = version
		f.emitCond.Broadcast()
		f.emitMu.Unlock()
	}()
	if f.onCommit != nil {
		f.onCommit(next)
	}
}

// subscriber is an unbounded FIFO of state versions with a coalescing wake-up signal.
type subscriber[S any] struct {
	id     uint64
	mu     sync.Mutex
	items  []S
	closed bool
	signal chan struct{} // buffered, size 1; closed on close()
}

func newSubscriber[S any](id uint64) *subscriber[S] {
	return &subscriber[S]{
		id:     id,
		signal: make(chan struct{}, 1),
	}
}

func (s *subscriber[S]) push(v S) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.items = append(s.items, v)
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber[S]) pop() (S, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero S
	if len(s.items) == 0 {
		return zero, false
	}
	v := s.items[0]
	s.items[0] = zero
	if len(s.items) == 1 {
		s.items = s.items[:0]
	} else {
		s.items = s.items[1:]
	}
	return v, true
}

func (s *subscriber[S]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *subscriber[S]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.signal)
}
