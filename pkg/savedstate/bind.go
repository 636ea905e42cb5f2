package savedstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/spindle/pkg/domain"
)

// Restorable is the part of a ViewModel that Bind needs.
type Restorable[S any] interface {
	Restore(ctx context.Context, state S) error
	Observe(ctx context.Context) <-chan S
}

// Bind restores the State saved under id into vm, if one exists, and then saves
// every State vm emits until ctx is done or vm is cleared. It returns once the
// restore was applied; the returned channel is closed when syncing stops.
//
// The restore goes through the ViewModel's Input queue, so vm must be started.
func (m *Manager[S]) Bind(ctx context.Context, id string, vm Restorable[S]) (<-chan struct{}, error) {
	state, err := m.Load(ctx, id)
	switch {
	case err == nil:
		if err := vm.Restore(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to restore %q: %w", id, err)
		}
		m.logger.Debug("Restored saved state", "id", id)
	case errors.Is(err, domain.ErrSnapshotNotFound):
		m.logger.Debug("No saved state, starting fresh", "id", id)
	default:
		return nil, err
	}

	done := make(chan struct{})
	states := vm.Observe(ctx)
	go func() {
		defer close(done)
		for s := range states {
			if err := m.Save(ctx, id, s); err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn("Failed to save state", "id", id, "err", err)
			}
		}
	}()
	return done, nil
}
