package localstore

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/core/internal/domain/entities"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "studysync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestKVRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "k", "v1"))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	// Upsert replaces.
	require.NoError(t, store.Set(ctx, "k", "v2"))
	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is fine.
	require.NoError(t, store.Delete(ctx, "k"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetSnapshot(ctx, "u1")
	assert.ErrorIs(t, err, entities.ErrSnapshotNotFound)

	snap := entities.DefaultCatalog()
	task := entities.NewTask("revise quadratics", time.Now())
	require.NoError(t, snap.AddTask("math-1-1", task))

	require.NoError(t, store.PutSnapshot(ctx, "u1", snap))

	got, err := store.GetSnapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TaskCount())

	// Snapshots are stored per user.
	_, err = store.GetSnapshot(ctx, "u2")
	assert.ErrorIs(t, err, entities.ErrSnapshotNotFound)
}

func TestSnapshotSurvivesJSONRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snap := entities.DefaultCatalog()
	task := entities.NewTask("do past paper", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	task.DueDate = "2024-03-15"
	task.Reminder = entities.ReminderOneDayBefore
	require.NoError(t, snap.AddTask("math-1-1", task))
	require.NoError(t, snap.RemoveTask(task.ID, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, store.PutSnapshot(ctx, "u1", snap))
	got, err := store.GetSnapshot(ctx, "u1")
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(snap, got), "round trip must preserve tasks and tombstones exactly")
}

func TestCorruptSnapshotPropagates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, snapshotKeyPrefix+"u1", "{not json"))

	_, err := store.GetSnapshot(ctx, "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, entities.ErrSnapshotNotFound, "corrupt data is not the same as absent data")
}

func TestLastSyncMarker(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ms, err := store.LastSync(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, ms, "never synced reads as zero")

	require.NoError(t, store.SetLastSync(ctx, "u1", 1709290800000))
	ms, err = store.LastSync(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1709290800000), ms)
}

func TestSessionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, _, err := store.Session(ctx)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.SetSession(ctx, "u1", "token-abc"))

	userID, token, err := store.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "token-abc", token)

	require.NoError(t, store.ClearSession(ctx, "u1"))
	_, _, err = store.Session(ctx)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
