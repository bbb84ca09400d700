// Package localstore persists per-user snapshots and sync metadata in a
// local SQLite database, keyed like a flat key-value store. Reads and
// writes are synchronous; the store never talks to the network.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/studyflow/core/internal/domain/entities"
)

const (
	snapshotKeyPrefix = "snapshot:"
	lastSyncKeyPrefix = "lastsync:"
	tokenKeyPrefix    = "token:"
	userIDKey         = "current_user"
)

const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

// Store is a per-device key-value store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary creates) the local database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init local store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ErrKeyNotFound is returned when a key is absent from the store.
var ErrKeyNotFound = errors.New("key not found")

// Get returns the raw value stored under key, or ErrKeyNotFound if the key
// is absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set upserts a raw value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// GetSnapshot loads the stored snapshot for a user. Corrupt JSON propagates
// as a parse error; absence is entities.ErrSnapshotNotFound.
func (s *Store) GetSnapshot(ctx context.Context, userID string) (*entities.Snapshot, error) {
	raw, err := s.Get(ctx, snapshotKeyPrefix+userID)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, entities.ErrSnapshotNotFound
		}
		return nil, err
	}

	var snap entities.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode local snapshot: %w", err)
	}
	return &snap, nil
}

// PutSnapshot stores the snapshot for a user.
func (s *Store) PutSnapshot(ctx context.Context, userID string, snap *entities.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode local snapshot: %w", err)
	}
	return s.Set(ctx, snapshotKeyPrefix+userID, string(raw))
}

// LastSync returns the last-sync marker for a user in epoch milliseconds,
// or zero if the user has never synced.
func (s *Store) LastSync(ctx context.Context, userID string) (int64, error) {
	raw, err := s.Get(ctx, lastSyncKeyPrefix+userID)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode last-sync marker: %w", err)
	}
	return ms, nil
}

// SetLastSync records the last-sync marker for a user in epoch milliseconds.
func (s *Store) SetLastSync(ctx context.Context, userID string, epochMillis int64) error {
	return s.Set(ctx, lastSyncKeyPrefix+userID, strconv.FormatInt(epochMillis, 10))
}

// Session helpers used by the CLI to remember who is logged in.

// SetSession stores the active user's ID and access token.
func (s *Store) SetSession(ctx context.Context, userID, token string) error {
	if err := s.Set(ctx, userIDKey, userID); err != nil {
		return err
	}
	return s.Set(ctx, tokenKeyPrefix+userID, token)
}

// ClearSession forgets the active user and their token. Snapshots and sync
// markers stay, so logging back in does not lose offline edits.
func (s *Store) ClearSession(ctx context.Context, userID string) error {
	if err := s.Delete(ctx, tokenKeyPrefix+userID); err != nil {
		return err
	}
	return s.Delete(ctx, userIDKey)
}

// Session returns the active user's ID and access token.
func (s *Store) Session(ctx context.Context) (string, string, error) {
	userID, err := s.Get(ctx, userIDKey)
	if err != nil {
		return "", "", err
	}
	token, err := s.Get(ctx, tokenKeyPrefix+userID)
	if err != nil {
		return "", "", err
	}
	return userID, token, nil
}
