package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/infrastructure/logger"
)

// fakeLocal is an in-memory LocalStore.
type fakeLocal struct {
	snaps map[string]*entities.Snapshot
	marks map[string]int64
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{
		snaps: make(map[string]*entities.Snapshot),
		marks: make(map[string]int64),
	}
}

func (f *fakeLocal) GetSnapshot(_ context.Context, userID string) (*entities.Snapshot, error) {
	snap, ok := f.snaps[userID]
	if !ok {
		return nil, entities.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (f *fakeLocal) PutSnapshot(_ context.Context, userID string, snap *entities.Snapshot) error {
	f.snaps[userID] = snap.Clone()
	return nil
}

func (f *fakeLocal) LastSync(_ context.Context, userID string) (int64, error) {
	return f.marks[userID], nil
}

func (f *fakeLocal) SetLastSync(_ context.Context, userID string, epochMillis int64) error {
	f.marks[userID] = epochMillis
	return nil
}

// fakeRemote is an in-memory remote.Store with scriptable failures.
type fakeRemote struct {
	snap *entities.Snapshot
	at   time.Time

	failFetches int
	fetchErr    error

	fetchCalls  int
	upsertCalls int
}

func (f *fakeRemote) Fetch(_ context.Context) (*entities.Snapshot, time.Time, error) {
	f.fetchCalls++
	if f.failFetches > 0 {
		f.failFetches--
		return nil, time.Time{}, errors.New("connection reset")
	}
	if f.fetchErr != nil {
		return nil, time.Time{}, f.fetchErr
	}
	if f.snap == nil {
		return nil, time.Time{}, entities.ErrSnapshotNotFound
	}
	return f.snap.Clone(), f.at, nil
}

func (f *fakeRemote) FetchStatus(_ context.Context) (time.Time, error) {
	if f.snap == nil {
		return time.Time{}, entities.ErrSnapshotNotFound
	}
	return f.at, nil
}

func (f *fakeRemote) Upsert(_ context.Context, snap *entities.Snapshot) (time.Time, error) {
	f.upsertCalls++
	f.snap = snap.Clone()
	f.at = f.at.Add(time.Second)
	return f.at, nil
}

func snapWithTask(id, text string, completed bool, createdAt time.Time) *entities.Snapshot {
	return &entities.Snapshot{
		Subjects: []entities.Subject{{
			ID:   "math",
			Name: "Mathematics",
			Units: []entities.Unit{{
				ID:   "math-1",
				Name: "Algebra",
				Subtopics: []entities.Subtopic{{
					ID:   "math-1-1",
					Name: "Quadratics",
					Tasks: []entities.Task{{
						ID:        id,
						Text:      text,
						Completed: completed,
						CreatedAt: createdAt,
					}},
				}},
			}},
		}},
	}
}

func newTestService(local *fakeLocal, rem *fakeRemote, policy *Policy) *Service {
	svc := New(local, rem, policy, logger.NewNop())
	svc.SetRetry(3, time.Millisecond)
	return svc
}

func TestPullChangesNoRemoteRecord(t *testing.T) {
	// Scenario: a user who has never pushed pulls. Empty remote is a valid
	// state, not an error.
	local := newFakeLocal()
	rem := &fakeRemote{}
	svc := newTestService(local, rem, nil)

	var errCalled bool
	snap, err := svc.PullChanges(context.Background(), PullRequest{
		UserID:  "u1",
		OnError: func(error) { errCalled = true },
	})

	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.False(t, errCalled, "not-found must not fire the error callback")
}

func TestPullChangesRemoteWinsOnLaterEdit(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	local := newFakeLocal()
	rem := &fakeRemote{
		snap: snapWithTask("1", "revise", true, base.AddDate(0, 0, 1)),
		at:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	svc := newTestService(local, rem, nil)

	snap, err := svc.PullChanges(context.Background(), PullRequest{
		UserID:    "u1",
		LocalData: snapWithTask("1", "revise", false, base),
	})

	require.NoError(t, err)
	require.NotNil(t, snap)
	_, task, err := snap.FindTask("1")
	require.NoError(t, err)
	assert.True(t, task.Completed, "remote copy has the later timestamp")
	assert.Equal(t, 0, rem.upsertCalls, "no push-back when the merge adds nothing")

	// The pulled state is mirrored locally and the marker recorded.
	mirrored, err := local.GetSnapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(mirrored, snap))
	assert.Equal(t, rem.at.UnixMilli(), local.marks["u1"])
}

func TestPullChangesPushesBackLocalExtras(t *testing.T) {
	// Scenario: local holds a task under math-1-1 the remote has never
	// seen. The pull returns it and the remote row gains it.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	localSnap := snapWithTask("shared", "shared", false, base)
	extra := entities.Task{ID: "extra", Text: "added offline", CreatedAt: base.AddDate(0, 0, 2)}
	require.NoError(t, localSnap.AddTask("math-1-1", extra))

	local := newFakeLocal()
	rem := &fakeRemote{
		snap: snapWithTask("shared", "shared", false, base),
		at:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	svc := newTestService(local, rem, nil)

	snap, err := svc.PullChanges(context.Background(), PullRequest{
		UserID:    "u1",
		LocalData: localSnap,
	})

	require.NoError(t, err)
	require.NotNil(t, snap)
	_, _, err = snap.FindTask("extra")
	require.NoError(t, err, "pull result carries the offline task")

	assert.Equal(t, 1, rem.upsertCalls, "merge result pushed back")
	_, _, err = rem.snap.FindTask("extra")
	require.NoError(t, err, "remote row carries the offline task after push-back")

	// Marker reflects the post-push-back revision.
	assert.Equal(t, rem.at.UnixMilli(), local.marks["u1"])
}

func TestPushChangesFirstPushInsertsAsIs(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data := snapWithTask("1", "revise", false, base)

	local := newFakeLocal()
	rem := &fakeRemote{at: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(local, rem, nil)

	err := svc.PushChanges(context.Background(), PushRequest{UserID: "u1", Data: data})
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(rem.snap, data))
	assert.Equal(t, rem.at.UnixMilli(), local.marks["u1"])
}

func TestPushChangesMergesUnseenRemoteEdits(t *testing.T) {
	// The remote changed since this client last synced; pushing blindly
	// would drop the other device's task, so the push merges first.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	local := newFakeLocal()
	rem := &fakeRemote{
		snap: snapWithTask("other-device", "from phone", false, base),
		at:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	svc := newTestService(local, rem, nil)

	err := svc.PushChanges(context.Background(), PushRequest{
		UserID: "u1",
		Data:   snapWithTask("this-device", "from laptop", false, base),
	})
	require.NoError(t, err)

	_, _, err = rem.snap.FindTask("other-device")
	require.NoError(t, err)
	_, _, err = rem.snap.FindTask("this-device")
	require.NoError(t, err)
}

func TestPushChangesLastCommitWins(t *testing.T) {
	// Two racing pushes for the same user: the row ends up holding exactly
	// the later committed payload. Non-atomic by design of the row store.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := snapWithTask("1", "first payload", false, base)
	second := snapWithTask("1", "second payload", true, base.Add(time.Hour))

	local := newFakeLocal()
	rem := &fakeRemote{at: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(local, rem, nil)

	ctx := context.Background()
	require.NoError(t, svc.PushChanges(ctx, PushRequest{UserID: "u1", Data: first}))
	require.NoError(t, svc.PushChanges(ctx, PushRequest{UserID: "u1", Data: second}))

	_, task, err := rem.snap.FindTask("1")
	require.NoError(t, err)
	assert.Equal(t, "second payload", task.Text)
	assert.True(t, task.Completed)
}

func TestPushChangesReportsRemoteFailure(t *testing.T) {
	local := newFakeLocal()
	rem := &fakeRemote{fetchErr: entities.ErrUnauthorized}
	svc := newTestService(local, rem, nil)

	var got error
	err := svc.PushChanges(context.Background(), PushRequest{
		UserID:  "u1",
		Data:    snapWithTask("1", "x", false, time.Now()),
		OnError: func(e error) { got = e },
	})

	require.Error(t, err)
	assert.ErrorIs(t, got, entities.ErrUnauthorized, "failure surfaces through the callback")
	assert.Equal(t, 1, rem.fetchCalls, "auth failures are permanent, no retry")
}

func TestPullChangesRetriesTransientFailures(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	local := newFakeLocal()
	rem := &fakeRemote{
		snap:        snapWithTask("1", "revise", false, base),
		at:          time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		failFetches: 2,
	}
	svc := newTestService(local, rem, nil)

	snap, err := svc.PullChanges(context.Background(), PullRequest{UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 3, rem.fetchCalls, "two transient failures then success")
}

func TestPullChangesGivesUpAfterRetries(t *testing.T) {
	local := newFakeLocal()
	rem := &fakeRemote{failFetches: 10}
	svc := newTestService(local, rem, nil)

	var errCalled bool
	_, err := svc.PullChanges(context.Background(), PullRequest{
		UserID:  "u1",
		OnError: func(error) { errCalled = true },
	})

	require.Error(t, err)
	assert.True(t, errCalled)
	assert.Equal(t, 4, rem.fetchCalls, "initial attempt plus three retries")
}

func TestCheckForUpdates(t *testing.T) {
	local := newFakeLocal()
	rem := &fakeRemote{
		snap: snapWithTask("1", "x", false, time.Now()),
		at:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	svc := newTestService(local, rem, nil)

	ctx := context.Background()
	assert.True(t, svc.CheckForUpdates(ctx, "u1"), "never synced, remote row exists")

	require.NoError(t, local.SetLastSync(ctx, "u1", rem.at.UnixMilli()))
	assert.False(t, svc.CheckForUpdates(ctx, "u1"), "marker matches remote revision")

	rem.at = rem.at.Add(time.Minute)
	assert.True(t, svc.CheckForUpdates(ctx, "u1"), "remote moved on")
}

func TestCheckForUpdatesFailsSoft(t *testing.T) {
	local := newFakeLocal()
	rem := &fakeRemote{}
	svc := newTestService(local, rem, nil)

	assert.False(t, svc.CheckForUpdates(context.Background(), "u1"))
}

func TestNotificationSuppressedDuringLoginGrace(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	local := newFakeLocal()
	rem := &fakeRemote{at: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(local, rem, &Policy{LoginAt: time.Now()})

	var notified bool
	err := svc.PushChanges(context.Background(), PushRequest{
		UserID:    "u1",
		Data:      snapWithTask("1", "x", false, base),
		OnSuccess: func() { notified = true },
	})

	require.NoError(t, err)
	assert.False(t, notified, "just logged in, success stays quiet")
	require.NotNil(t, rem.snap, "suppression never blocks the sync itself")
}

func TestNotificationSkipFlag(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	local := newFakeLocal()
	rem := &fakeRemote{at: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(local, rem, NewPolicy())

	var notified bool
	err := svc.PushChanges(context.Background(), PushRequest{
		UserID:           "u1",
		Data:             snapWithTask("1", "x", false, base),
		OnSuccess:        func() { notified = true },
		SkipNotification: true,
	})

	require.NoError(t, err)
	assert.False(t, notified)
}

func TestImmediateSyncNotifies(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	local := newFakeLocal()
	rem := &fakeRemote{at: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(local, rem, NewPolicy())

	var notified bool
	err := svc.ImmediateSync(context.Background(), SyncRequest{
		UserID:    "u1",
		Data:      snapWithTask("1", "x", false, base),
		OnSuccess: func() { notified = true },
	})

	require.NoError(t, err)
	assert.True(t, notified)
	require.NotNil(t, rem.snap)
}
