package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyflow/core/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SnapshotRepository defines the interface for the per-user snapshot row.
// Each user owns at most one row; writes replace the whole document
// atomically and bump updated_at server-side.
type SnapshotRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*entities.Snapshot, time.Time, error)
	GetUpdatedAt(ctx context.Context, userID uuid.UUID) (time.Time, error)
	Upsert(ctx context.Context, userID uuid.UUID, snap *entities.Snapshot) (time.Time, error)
}

// PaperRepository defines the interface for past-paper metadata operations
type PaperRepository interface {
	Create(ctx context.Context, paper *entities.Paper) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Paper, error)
	List(ctx context.Context, filter PaperFilter) ([]*entities.Paper, error)
	Count(ctx context.Context, filter PaperFilter) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuthRepository defines the interface for authentication operations
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) error
}

// RefreshToken represents a stored refresh token
type RefreshToken struct {
	ID        int        `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

// IsExpired reports whether the token's lifetime has passed
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsRevoked reports whether the token was explicitly revoked
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// PaperFilter narrows paper listings
type PaperFilter struct {
	SubjectID *string
	Year      *int
	Session   *string
	Limit     int
	Offset    int
}
