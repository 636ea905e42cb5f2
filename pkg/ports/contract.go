package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/spindle/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract. sample must return distinct, comparable
// states for distinct seeds.
func RunStateStoreContract[S any](t *testing.T, store StateStore[S], sample func(seed int) S) {
	ctx := context.Background()
	id := "contract-test-" + time.Now().Format("20060102150405.000000000")

	t.Run("Save and Load", func(t *testing.T) {
		state := sample(1)
		require.NoError(t, store.Save(ctx, id, state), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state, loaded)
	})

	t.Run("Save overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, sample(1)))
		require.NoError(t, store.Save(ctx, id, sample(2)))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, sample(2), loaded)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, sample(3)))
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		require.NoError(t, store.Save(ctx, id1, sample(1)))
		require.NoError(t, store.Save(ctx, id2, sample(2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
