package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/ports"
)

// SnapshotRepositoryImpl implements the SnapshotRepository interface. The
// whole study tree lives in one jsonb column per user; writes replace the
// document in a single statement so clients never observe a partial tree.
type SnapshotRepositoryImpl struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB) ports.SnapshotRepository {
	return &SnapshotRepositoryImpl{db: db}
}

func (r *SnapshotRepositoryImpl) Get(ctx context.Context, userID uuid.UUID) (*entities.Snapshot, time.Time, error) {
	query := `SELECT doc, updated_at FROM snapshots WHERE user_id = $1`

	var (
		raw       []byte
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, entities.ErrSnapshotNotFound
		}
		return nil, time.Time{}, fmt.Errorf("get snapshot: %w", err)
	}

	var snap entities.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot doc: %w", err)
	}

	return &snap, updatedAt, nil
}

func (r *SnapshotRepositoryImpl) GetUpdatedAt(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	query := `SELECT updated_at FROM snapshots WHERE user_id = $1`

	var updatedAt time.Time
	err := r.db.GetContext(ctx, &updatedAt, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, entities.ErrSnapshotNotFound
		}
		return time.Time{}, fmt.Errorf("get snapshot updated_at: %w", err)
	}

	return updatedAt, nil
}

func (r *SnapshotRepositoryImpl) Upsert(ctx context.Context, userID uuid.UUID, snap *entities.Snapshot) (time.Time, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode snapshot doc: %w", err)
	}

	query := `
		INSERT INTO snapshots (user_id, doc, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP
		RETURNING updated_at`

	var updatedAt time.Time
	if err := r.db.QueryRowContext(ctx, query, userID, raw).Scan(&updatedAt); err != nil {
		return time.Time{}, fmt.Errorf("upsert snapshot: %w", err)
	}

	return updatedAt, nil
}
