package savedstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/spindle/internal/logging"
	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to saved States, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager[S any] struct {
	store ports.StateStore[S]

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*options)

type options struct {
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithLockTTL sets the lease of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewManager creates a Manager over the given store.
func NewManager[S any](store ports.StateStore[S], opts ...Option) *Manager[S] {
	o := options{
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[S]{
		store:   store,
		locks:   make(map[string]*lockEntry),
		locker:  o.locker,
		lockTTL: o.lockTTL,
		logger:  o.logger,
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, and call release(id) after unlocking.
func (m *Manager[S]) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager[S]) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Load retrieves a saved State.
func (m *Manager[S]) Load(ctx context.Context, id string) (S, error) {
	var state S
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, id)
		return err
	})
	return state, err
}

// LoadOrInit loads the State saved under id, or saves and returns initial if there
// is none. Concurrent callers agree on a single value.
func (m *Manager[S]) LoadOrInit(ctx context.Context, id string, initial S) (S, error) {
	var state S
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			return fmt.Errorf("failed to check saved state: %w", err)
		}

		state = initial
		if err := m.store.Save(ctx, id, state); err != nil {
			return fmt.Errorf("failed to initialize saved state: %w", err)
		}
		return nil
	})
	return state, err
}

// Save persists a State.
func (m *Manager[S]) Save(ctx context.Context, id string, state S) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Save(ctx, id, state)
	})
}

// Delete removes a saved State.
func (m *Manager[S]) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager[S]) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager[S]) Store() ports.StateStore[S] {
	return m.store
}

// WithLock executes fn while holding the lock for id.
func (m *Manager[S]) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
