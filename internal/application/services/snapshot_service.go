package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/infrastructure/logger"
	"github.com/studyflow/core/internal/ports"
)

// SnapshotService handles per-user snapshot reads and writes. It performs no
// merging: conflict resolution is a client concern, the server only stores
// whole documents and stamps them.
type SnapshotService struct {
	snapshotRepo ports.SnapshotRepository
	logger       *logger.Logger
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(snapshotRepo ports.SnapshotRepository, logger *logger.Logger) *SnapshotService {
	return &SnapshotService{
		snapshotRepo: snapshotRepo,
		logger:       logger,
	}
}

// GetSnapshot retrieves the user's snapshot and its updated_at marker
func (s *SnapshotService) GetSnapshot(ctx context.Context, userID uuid.UUID) (*ports.SnapshotResponse, error) {
	snap, updatedAt, err := s.snapshotRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ports.SnapshotResponse{
		Snapshot:  snap,
		UpdatedAt: updatedAt,
	}, nil
}

// GetStatus retrieves only the updated_at marker, for cheap change polling
func (s *SnapshotService) GetStatus(ctx context.Context, userID uuid.UUID) (*ports.SnapshotStatusResponse, error) {
	updatedAt, err := s.snapshotRepo.GetUpdatedAt(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ports.SnapshotStatusResponse{UpdatedAt: updatedAt}, nil
}

// UpsertSnapshot replaces the user's snapshot with the supplied document
func (s *SnapshotService) UpsertSnapshot(ctx context.Context, userID uuid.UUID, req ports.UpsertSnapshotRequest) (*ports.SnapshotStatusResponse, error) {
	if req.Snapshot == nil {
		return nil, fmt.Errorf("snapshot document is required")
	}

	if err := validateSnapshot(req.Snapshot); err != nil {
		return nil, err
	}

	updatedAt, err := s.snapshotRepo.Upsert(ctx, userID, req.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.logger.Info("Snapshot stored",
		"user_id", userID,
		"tasks", req.Snapshot.TaskCount(),
		"tombstones", len(req.Snapshot.Tombstones),
		"updated_at", updatedAt.Format(time.RFC3339))

	return &ports.SnapshotStatusResponse{UpdatedAt: updatedAt}, nil
}

// validateSnapshot rejects documents that would poison later merges: duplicate
// task IDs, zero creation times, or unknown reminder offsets.
func validateSnapshot(snap *entities.Snapshot) error {
	seen := make(map[string]bool)

	for i := range snap.Subjects {
		for j := range snap.Subjects[i].Units {
			for k := range snap.Subjects[i].Units[j].Subtopics {
				st := &snap.Subjects[i].Units[j].Subtopics[k]
				for t := range st.Tasks {
					task := &st.Tasks[t]
					if task.ID == "" {
						return fmt.Errorf("task in subtopic %s has no id", st.ID)
					}
					if seen[task.ID] {
						return fmt.Errorf("duplicate task id %s", task.ID)
					}
					seen[task.ID] = true
					if task.CreatedAt.IsZero() {
						return fmt.Errorf("task %s has no creation time", task.ID)
					}
					if task.Reminder != "" && !entities.ValidReminderOffset(task.Reminder) {
						return fmt.Errorf("task %s: %w", task.ID, entities.ErrInvalidReminder)
					}
				}
			}
		}
	}

	for _, tomb := range snap.Tombstones {
		if tomb.TaskID == "" || tomb.DeletedAt.IsZero() {
			return fmt.Errorf("malformed tombstone")
		}
	}

	return nil
}
