package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/infrastructure/logger"
	"github.com/studyflow/core/internal/ports"
)

// fakeSnapshotRepo is an in-memory SnapshotRepository.
type fakeSnapshotRepo struct {
	docs map[uuid.UUID]*entities.Snapshot
	at   map[uuid.UUID]time.Time
	now  time.Time
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{
		docs: make(map[uuid.UUID]*entities.Snapshot),
		at:   make(map[uuid.UUID]time.Time),
		now:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fakeSnapshotRepo) Get(_ context.Context, userID uuid.UUID) (*entities.Snapshot, time.Time, error) {
	doc, ok := f.docs[userID]
	if !ok {
		return nil, time.Time{}, entities.ErrSnapshotNotFound
	}
	return doc.Clone(), f.at[userID], nil
}

func (f *fakeSnapshotRepo) GetUpdatedAt(_ context.Context, userID uuid.UUID) (time.Time, error) {
	at, ok := f.at[userID]
	if !ok {
		return time.Time{}, entities.ErrSnapshotNotFound
	}
	return at, nil
}

func (f *fakeSnapshotRepo) Upsert(_ context.Context, userID uuid.UUID, snap *entities.Snapshot) (time.Time, error) {
	f.now = f.now.Add(time.Second)
	f.docs[userID] = snap.Clone()
	f.at[userID] = f.now
	return f.now, nil
}

func validTestSnapshot(t *testing.T) *entities.Snapshot {
	t.Helper()
	snap := entities.DefaultCatalog()
	require.NoError(t, snap.AddTask("math-1-1", entities.NewTask("revise", time.Now())))
	return snap
}

func TestSnapshotServiceUpsertAndGet(t *testing.T) {
	repo := newFakeSnapshotRepo()
	svc := NewSnapshotService(repo, logger.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, userID)
	assert.ErrorIs(t, err, entities.ErrSnapshotNotFound)

	snap := validTestSnapshot(t)
	stored, err := svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{Snapshot: snap})
	require.NoError(t, err)
	assert.False(t, stored.UpdatedAt.IsZero())

	got, err := svc.GetSnapshot(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Snapshot.TaskCount())
	assert.True(t, got.UpdatedAt.Equal(stored.UpdatedAt))

	status, err := svc.GetStatus(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.UpdatedAt.Equal(stored.UpdatedAt))
}

func TestSnapshotServiceUpsertBumpsMarker(t *testing.T) {
	repo := newFakeSnapshotRepo()
	svc := NewSnapshotService(repo, logger.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{Snapshot: validTestSnapshot(t)})
	require.NoError(t, err)

	second, err := svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{Snapshot: validTestSnapshot(t)})
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestSnapshotServiceRejectsBadDocuments(t *testing.T) {
	repo := newFakeSnapshotRepo()
	svc := NewSnapshotService(repo, logger.NewNop())
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{})
	assert.Error(t, err, "nil document")

	missingID := entities.DefaultCatalog()
	require.NoError(t, missingID.AddTask("math-1-1", entities.Task{Text: "no id", CreatedAt: time.Now()}))
	_, err = svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{Snapshot: missingID})
	assert.Error(t, err, "task without id")

	dup := entities.DefaultCatalog()
	task := entities.NewTask("dup", time.Now())
	require.NoError(t, dup.AddTask("math-1-1", task))
	require.NoError(t, dup.AddTask("math-1-2", task))
	_, err = svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{Snapshot: dup})
	assert.Error(t, err, "duplicate task id")

	zeroTime := entities.DefaultCatalog()
	require.NoError(t, zeroTime.AddTask("math-1-1", entities.Task{ID: "z", Text: "zero"}))
	_, err = svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{Snapshot: zeroTime})
	assert.Error(t, err, "zero creation time")

	badReminder := entities.DefaultCatalog()
	bad := entities.NewTask("bad reminder", time.Now())
	bad.Reminder = "eventually"
	require.NoError(t, badReminder.AddTask("math-1-1", bad))
	_, err = svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{Snapshot: badReminder})
	assert.ErrorIs(t, err, entities.ErrInvalidReminder)

	badTombstone := validTestSnapshot(t)
	badTombstone.Tombstones = []entities.Tombstone{{TaskID: ""}}
	_, err = svc.UpsertSnapshot(ctx, userID, ports.UpsertSnapshotRequest{Snapshot: badTombstone})
	assert.Error(t, err, "malformed tombstone")

	_, err = svc.GetSnapshot(ctx, userID)
	assert.ErrorIs(t, err, entities.ErrSnapshotNotFound, "nothing was stored")
}
