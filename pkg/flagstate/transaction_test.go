package flagstate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/flagstate"
)

func TestTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("SingleCreateForNewEntity", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			require.NoError(t, tx.Set("beta", true))
			require.NoError(t, tx.Set("gamma", false))
			return nil
		})
		require.NoError(t, err)

		writes := store.writes()
		require.Len(t, writes, 1, "a transaction must issue exactly one write")
		assert.Equal(t, "create", writes[0].op)
		assert.Equal(t, flagstate.Snapshot{"beta": true, "gamma": false}, writes[0].flags)
	})

	t.Run("SingleReplaceForPersistedEntity", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)
		require.NoError(t, state.Set(ctx, "colorway", false))

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			require.NoError(t, tx.Enable("beta"))
			require.NoError(t, tx.Disable("gamma"))
			return nil
		})
		require.NoError(t, err)

		writes := store.writes()
		require.Len(t, writes, 2)
		assert.Equal(t, "replace", writes[1].op)
		// Flags untouched by the transaction are preserved in the replace.
		assert.Equal(t, flagstate.Snapshot{"beta": true, "gamma": false, "colorway": false}, writes[1].flags)
	})

	t.Run("LastIntentWins", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			require.NoError(t, tx.Set("beta", false))
			require.NoError(t, tx.Set("beta", true))
			return nil
		})
		require.NoError(t, err)

		writes := store.writes()
		require.Len(t, writes, 1)
		assert.Equal(t, flagstate.Snapshot{"beta": true}, writes[0].flags)
	})

	t.Run("ResetAfterSetRemovesKey", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)
		require.NoError(t, state.Set(ctx, "gamma", false))

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			require.NoError(t, tx.Set("beta", true))
			require.NoError(t, tx.Reset("beta"))
			return nil
		})
		require.NoError(t, err)

		writes := store.writes()
		require.Len(t, writes, 2)
		assert.Equal(t, "replace", writes[1].op)
		assert.Equal(t, flagstate.Snapshot{"gamma": false}, writes[1].flags)

		persisted, err := state.IsPersisted(ctx, "beta")
		require.NoError(t, err)
		assert.False(t, persisted)
	})

	t.Run("ResetOfPreviouslyPersistedFlag", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)
		require.NoError(t, state.Set(ctx, "beta", true))
		require.NoError(t, state.Set(ctx, "gamma", false))

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			return tx.Reset("beta")
		})
		require.NoError(t, err)

		writes := store.writes()
		require.Len(t, writes, 3)
		assert.Equal(t, "replace", writes[2].op)
		assert.Equal(t, flagstate.Snapshot{"gamma": false}, writes[2].flags)
	})

	t.Run("PersistInsideTransaction", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			return tx.Persist(ctx, "colorway", "dark")
		})
		require.NoError(t, err)

		writes := store.writes()
		require.Len(t, writes, 1)
		assert.Equal(t, "create", writes[0].op)
		assert.Equal(t, flagstate.Snapshot{"colorway": true}, writes[0].flags)
	})

	t.Run("EmptyTransactionWritesNothing", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error { return nil })
		require.NoError(t, err)
		assert.Empty(t, store.writes())
	})

	t.Run("OnlyResetsOnUnpersistedEntityWritesNothing", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			return tx.Reset("beta")
		})
		require.NoError(t, err)
		assert.Empty(t, store.writes())
	})

	t.Run("CallbackErrorDiscardsTransaction", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)
		boom := errors.New("boom")

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			require.NoError(t, tx.Set("beta", true))
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Empty(t, store.writes())

		persisted, err := state.IsPersisted(ctx, "beta")
		require.NoError(t, err)
		assert.False(t, persisted)
	})

	t.Run("UnknownFeatureRejectedAtRecordTime", func(t *testing.T) {
		t.Parallel()
		state, store := newTestState(t)

		err := state.Transaction(ctx, func(tx *flagstate.Tx) error {
			return tx.Set("nonexistent", true)
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, flagstate.ErrUnknownFeature)
		assert.Empty(t, store.writes())
	})

	t.Run("CommitFailureLeavesCacheUntouched", func(t *testing.T) {
		t.Parallel()
		storeErr := errors.New("write failed")
		failing := &fetchOKStore{snapshot: flagstate.Snapshot{"beta": false}, err: storeErr}
		state, err := flagstate.NewState("user-1", testRegistry(t), failing)
		require.NoError(t, err)

		err = state.Transaction(ctx, func(tx *flagstate.Tx) error {
			return tx.Set("beta", true)
		})
		require.ErrorIs(t, err, storeErr)

		enabled, err := state.IsEnabled(ctx, "beta")
		require.NoError(t, err)
		assert.False(t, enabled)
	})
}
