// Package service implements the sync orchestrator: it decides, per user
// action, whether to pull, merge and push the study snapshot, and reports
// the outcome through callbacks.
package service

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/domain/merge"
	"github.com/studyflow/core/internal/infrastructure/logger"
	"github.com/studyflow/core/internal/sync/remote"
)

// LocalStore is the synchronous per-user store the orchestrator mirrors
// into after every successful pull or push.
type LocalStore interface {
	GetSnapshot(ctx context.Context, userID string) (*entities.Snapshot, error)
	PutSnapshot(ctx context.Context, userID string, snap *entities.Snapshot) error
	LastSync(ctx context.Context, userID string) (int64, error)
	SetLastSync(ctx context.Context, userID string, epochMillis int64) error
}

// PullRequest carries the inputs of a pull cycle. LocalData, when present,
// is merged against the fetched remote snapshot.
type PullRequest struct {
	UserID    string
	LocalData *entities.Snapshot
	OnSuccess func()
	OnError   func(error)
}

// PushRequest carries the inputs of a push cycle.
type PushRequest struct {
	UserID           string
	Data             *entities.Snapshot
	OnSuccess        func()
	OnError          func(error)
	SkipNotification bool
}

// SyncRequest is the input of ImmediateSync, the write-through push issued
// right after a local mutation.
type SyncRequest struct {
	UserID    string
	Data      *entities.Snapshot
	OnSuccess func()
	OnError   func(error)
}

// Service orchestrates pulls, merges and pushes for one client. Calls for
// the same user are expected to be serialized by the caller; two racing
// pushes resolve at the row level, last commit wins.
type Service struct {
	local  LocalStore
	remote remote.Store
	policy *Policy
	logger *logger.Logger

	retryAttempts uint64
	retryBase     time.Duration
}

// New creates a sync orchestrator.
func New(local LocalStore, remoteStore remote.Store, policy *Policy, appLogger *logger.Logger) *Service {
	return &Service{
		local:         local,
		remote:        remoteStore,
		policy:        policy,
		logger:        appLogger,
		retryAttempts: 3,
		retryBase:     200 * time.Millisecond,
	}
}

// SetRetry overrides the bounded exponential backoff applied to remote
// calls. Zero attempts disables retrying.
func (s *Service) SetRetry(attempts uint64, base time.Duration) {
	s.retryAttempts = attempts
	if base > 0 {
		s.retryBase = base
	}
}

// CheckForUpdates reports whether the remote snapshot changed since this
// client last synced. It reads only the updated_at marker, mutates nothing,
// and fails soft: any error logs and returns false.
func (s *Service) CheckForUpdates(ctx context.Context, userID string) bool {
	updatedAt, err := s.remote.FetchStatus(ctx)
	if err != nil {
		if !errors.Is(err, entities.ErrSnapshotNotFound) {
			s.logger.Warn("Update check failed", "user_id", userID, "error", err)
		}
		return false
	}

	lastSync, err := s.local.LastSync(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to read last-sync marker", "user_id", userID, "error", err)
		return false
	}

	return updatedAt.UnixMilli() > lastSync
}

// PullChanges fetches the remote snapshot. With LocalData present it merges
// the two copies and, when the merge produced something the remote does not
// have yet, pushes the merged result straight back (suppressing the success
// notification for that inner push). A user with no remote row yet yields
// (nil, nil). The local mirror and last-sync marker are updated on success.
func (s *Service) PullChanges(ctx context.Context, req PullRequest) (*entities.Snapshot, error) {
	var (
		snap      *entities.Snapshot
		updatedAt time.Time
	)

	err := s.withRetry(ctx, func(ctx context.Context) error {
		var ferr error
		snap, updatedAt, ferr = s.remote.Fetch(ctx)
		return ferr
	})

	if errors.Is(err, entities.ErrSnapshotNotFound) {
		// Valid empty state: the user has never pushed.
		s.notifySuccess(req.OnSuccess, false)
		return nil, nil
	}
	if err != nil {
		s.reportError("pull changes", req.UserID, err, req.OnError)
		return nil, err
	}

	result := snap
	if req.LocalData != nil {
		merged := merge.Merge(req.LocalData, snap)
		if !reflect.DeepEqual(merged, snap) {
			result = merged
			// Fire-and-forget relative to the caller: a failed push-back
			// leaves the merged data local-only until the next push.
			if newAt, perr := s.remote.Upsert(ctx, merged); perr != nil {
				s.logger.Warn("Push-back after merge failed", "user_id", req.UserID, "error", perr)
			} else {
				updatedAt = newAt
			}
		}
	}

	if err := s.local.PutSnapshot(ctx, req.UserID, result); err != nil {
		s.logger.Warn("Local mirror write failed", "user_id", req.UserID, "error", err)
	}
	if err := s.local.SetLastSync(ctx, req.UserID, updatedAt.UnixMilli()); err != nil {
		s.logger.Warn("Failed to record last-sync marker", "user_id", req.UserID, "error", err)
	}

	s.notifySuccess(req.OnSuccess, false)
	return result, nil
}

// PushChanges writes the caller's snapshot to the remote row. If the remote
// changed since this client last synced, the two copies are merged first and
// the merged result is pushed instead, resolving conflicts at the task level
// rather than rejecting the push. The last-sync marker advances only on a
// successful write.
func (s *Service) PushChanges(ctx context.Context, req PushRequest) error {
	data := req.Data

	var (
		remoteSnap *entities.Snapshot
		remoteAt   time.Time
	)
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var ferr error
		remoteSnap, remoteAt, ferr = s.remote.Fetch(ctx)
		return ferr
	})

	switch {
	case errors.Is(err, entities.ErrSnapshotNotFound):
		// First push for this user: insert as-is.
	case err != nil:
		s.reportError("push changes", req.UserID, err, req.OnError)
		return err
	default:
		lastSync, lerr := s.local.LastSync(ctx, req.UserID)
		if lerr != nil {
			s.logger.Warn("Failed to read last-sync marker", "user_id", req.UserID, "error", lerr)
		}
		if remoteAt.UnixMilli() > lastSync {
			// The remote holds edits this client has not seen.
			data = merge.Merge(req.Data, remoteSnap)
		}
	}

	var newAt time.Time
	err = s.withRetry(ctx, func(ctx context.Context) error {
		var uerr error
		newAt, uerr = s.remote.Upsert(ctx, data)
		return uerr
	})
	if err != nil {
		s.reportError("push changes", req.UserID, err, req.OnError)
		return err
	}

	if err := s.local.PutSnapshot(ctx, req.UserID, data); err != nil {
		s.logger.Warn("Local mirror write failed", "user_id", req.UserID, "error", err)
	}
	if err := s.local.SetLastSync(ctx, req.UserID, newAt.UnixMilli()); err != nil {
		s.logger.Warn("Failed to record last-sync marker", "user_id", req.UserID, "error", err)
	}

	s.notifySuccess(req.OnSuccess, req.SkipNotification)
	return nil
}

// ImmediateSync is the write-through push used after critical local
// mutations (task add, toggle, delete), so the remote row reflects every
// state-changing action without waiting for a periodic cycle.
func (s *Service) ImmediateSync(ctx context.Context, req SyncRequest) error {
	return s.PushChanges(ctx, PushRequest{
		UserID:    req.UserID,
		Data:      req.Data,
		OnSuccess: req.OnSuccess,
		OnError:   req.OnError,
	})
}

// RunPeriodic pulls on a fixed interval until the context is cancelled,
// feeding each cycle the locally stored snapshot so offline edits ride
// along. Cycle failures are logged and the loop keeps going.
func (s *Service) RunPeriodic(ctx context.Context, userID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			local, err := s.local.GetSnapshot(ctx, userID)
			if err != nil && !errors.Is(err, entities.ErrSnapshotNotFound) {
				s.logger.Warn("Periodic sync skipped, local snapshot unreadable", "user_id", userID, "error", err)
				continue
			}

			if _, err := s.PullChanges(ctx, PullRequest{UserID: userID, LocalData: local}); err != nil {
				s.logger.Warn("Periodic sync cycle failed", "user_id", userID, "error", err)
			}
		}
	}
}

// withRetry applies bounded exponential backoff to transient remote
// failures. Not-found and auth failures are permanent.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(s.retryAttempts, retry.NewExponential(s.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, entities.ErrSnapshotNotFound) || errors.Is(err, entities.ErrUnauthorized) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (s *Service) reportError(op, userID string, err error, onError func(error)) {
	s.logger.Error("Sync operation failed", "operation", op, "user_id", userID, "error", err)
	if onError != nil {
		onError(err)
	}
}

func (s *Service) notifySuccess(onSuccess func(), skip bool) {
	if onSuccess == nil || skip {
		return
	}

	now := time.Now()
	if !s.policy.Allow(now) {
		return
	}
	s.policy.MarkNotified(now)
	onSuccess()
}
