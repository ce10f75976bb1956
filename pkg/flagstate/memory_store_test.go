package flagstate_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/flagstate"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("FetchAbsent", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()

		snapshot, err := store.Fetch(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("CreateThenFetch", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()

		require.NoError(t, store.Create(ctx, "e1", flagstate.Snapshot{"beta": true}))

		snapshot, err := store.Fetch(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, flagstate.Snapshot{"beta": true}, snapshot)
	})

	t.Run("CreateConflict", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()
		require.NoError(t, store.Create(ctx, "e1", flagstate.Snapshot{"beta": true}))

		err := store.Create(ctx, "e1", flagstate.Snapshot{"beta": false})
		require.Error(t, err)
		assert.ErrorIs(t, err, flagstate.ErrAlreadyPersisted)
	})

	t.Run("CreateEmptySnapshotIsARecord", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()
		require.NoError(t, store.Create(ctx, "e1", flagstate.Snapshot{}))

		snapshot, err := store.Fetch(ctx, "e1")
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Empty(t, snapshot)
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()
		require.NoError(t, store.Create(ctx, "e1", flagstate.Snapshot{"beta": true}))

		require.NoError(t, store.Update(ctx, "e1", flagstate.Snapshot{"gamma": false}))

		snapshot, err := store.Fetch(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, flagstate.Snapshot{"beta": true, "gamma": false}, snapshot)
	})

	t.Run("UpdateWithoutRecord", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()

		err := store.Update(ctx, "missing", flagstate.Snapshot{"beta": true})
		require.Error(t, err)
		assert.ErrorIs(t, err, flagstate.ErrNotPersisted)
	})

	t.Run("ReplaceDropsAbsentKeys", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()
		require.NoError(t, store.Create(ctx, "e1", flagstate.Snapshot{"beta": true, "gamma": false}))

		require.NoError(t, store.Replace(ctx, "e1", flagstate.Snapshot{"gamma": false}))

		snapshot, err := store.Fetch(ctx, "e1")
		require.NoError(t, err)
		assert.Equal(t, flagstate.Snapshot{"gamma": false}, snapshot)
	})

	t.Run("ReplaceWithoutRecord", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()

		err := store.Replace(ctx, "missing", flagstate.Snapshot{})
		require.Error(t, err)
		assert.ErrorIs(t, err, flagstate.ErrNotPersisted)
	})

	t.Run("FetchReturnsIndependentCopy", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()
		require.NoError(t, store.Create(ctx, "e1", flagstate.Snapshot{"beta": true}))

		snapshot, err := store.Fetch(ctx, "e1")
		require.NoError(t, err)
		snapshot["beta"] = false

		fresh, err := store.Fetch(ctx, "e1")
		require.NoError(t, err)
		assert.True(t, fresh["beta"], "mutating a fetched snapshot must not affect the store")
	})

	t.Run("ConcurrentAccessAcrossEntities", func(t *testing.T) {
		t.Parallel()
		store := flagstate.NewMemoryStore()

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				entityID := uuid.NewString()
				assert.NoError(t, store.Create(ctx, entityID, flagstate.Snapshot{"beta": true}))
				assert.NoError(t, store.Update(ctx, entityID, flagstate.Snapshot{"gamma": false}))
				snapshot, err := store.Fetch(ctx, entityID)
				assert.NoError(t, err)
				assert.Len(t, snapshot, 2)
			}()
		}
		wg.Wait()
	})
}
