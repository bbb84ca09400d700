package ports

import (
	"time"

	"github.com/studyflow/core/internal/domain/entities"
)

// Request/response types shared between services and HTTP handlers.

// RegisterRequest is the payload for account creation
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the payload for authentication
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries issued tokens after register/login/refresh
type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	UserID       string         `json:"user_id"`
	User         *entities.User `json:"user,omitempty"`
}

// SnapshotResponse is the sync read payload: the full document plus the
// server-side updated_at marker clients compare against their last sync.
type SnapshotResponse struct {
	Snapshot  *entities.Snapshot `json:"snapshot"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// SnapshotStatusResponse carries only the updated_at marker
type SnapshotStatusResponse struct {
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertSnapshotRequest is the sync write payload
type UpsertSnapshotRequest struct {
	Snapshot *entities.Snapshot `json:"snapshot" validate:"required"`
}

// CreatePaperRequest is the payload for registering past-paper metadata
type CreatePaperRequest struct {
	SubjectID   string `json:"subject_id" validate:"required"`
	Year        int    `json:"year" validate:"required,gte=1990,lte=2100"`
	Session     string `json:"session" validate:"required"`
	PaperNumber int    `json:"paper_number" validate:"required,gte=1"`
	Title       string `json:"title" validate:"required"`
	DownloadURL string `json:"download_url" validate:"required,url"`
}

// Claims carries the identity extracted from a validated access token
type Claims struct {
	UserID string            `json:"user_id"`
	Email  string            `json:"email"`
	Role   entities.UserRole `json:"role"`
}

// MessageResponse is a generic message payload
type MessageResponse struct {
	Message string `json:"message"`
}

// PaginatedResponse wraps list payloads with totals
type PaginatedResponse[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
