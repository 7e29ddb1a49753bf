package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/skein/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		turn := 1
		snap := domain.NewSnapshot()
		snap.StoryID = "hello"
		snap.Digest = "abc123"
		snap.CurrentNodeID = 3
		snap.History = []string{"Hello", "• A"}
		snap.NodeVisited[3] = 1
		snap.Revisitable[3] = false
		snap.ChoiceOrder[3] = 0
		snap.Containers["a"] = domain.ContainerState{Status: domain.StatusSeen, SeenCount: 2, LastSeenTurn: &turn}
		snap.Variables["name"] = "Fogg"
		snap.Variables["gold"] = 42
		snap.Turn = 1

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.StoryID, loaded.StoryID)
		assert.Equal(t, snap.Digest, loaded.Digest)
		assert.Equal(t, snap.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, snap.History, loaded.History)
		assert.Equal(t, 1, loaded.NodeVisited[3])
		assert.Equal(t, false, loaded.Revisitable[3])
		assert.Equal(t, 2, loaded.Containers["a"].SeenCount)
		require.NotNil(t, loaded.Containers["a"].LastSeenTurn)
		assert.Equal(t, 1, *loaded.Containers["a"].LastSeenTurn)
		assert.Equal(t, "Fogg", loaded.Variables["name"])
		// JSON backed stores turn numbers into float64; only presence is guaranteed.
		assert.NotNil(t, loaded.Variables["gold"])
		assert.Equal(t, 1, loaded.Turn)
	})

	t.Run("Load Is Isolated From Caller", func(t *testing.T) {
		snap := domain.NewSnapshot()
		snap.History = append(snap.History, "first")
		require.NoError(t, store.Save(ctx, sessionID, snap))

		snap.History[0] = "mutated"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, []string{"first"}, loaded.History)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSnapshot())
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSnapshot())
		_ = store.Save(ctx, id2, domain.NewSnapshot())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
