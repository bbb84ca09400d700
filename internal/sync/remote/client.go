// Package remote is the client-side accessor for the snapshot row the API
// server keeps per user. It speaks plain JSON over HTTP; the bearer token
// scopes every call to the authenticated user.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studyflow/core/internal/domain/entities"
)

// Store describes the remote snapshot operations the sync orchestrator
// needs. Fetch and Upsert move whole documents; FetchStatus reads only the
// server-side updated_at marker.
type Store interface {
	Fetch(ctx context.Context) (*entities.Snapshot, time.Time, error)
	FetchStatus(ctx context.Context) (time.Time, error)
	Upsert(ctx context.Context, snap *entities.Snapshot) (time.Time, error)
}

// Client implements Store against the StudyFlow API server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given API base URL and access token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// snapshotResponse mirrors the server's snapshot payload.
type snapshotResponse struct {
	Snapshot  *entities.Snapshot `json:"snapshot"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type statusResponse struct {
	UpdatedAt time.Time `json:"updated_at"`
}

type upsertRequest struct {
	Snapshot *entities.Snapshot `json:"snapshot"`
}

// LoginResponse carries the tokens issued by the auth endpoint.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// Fetch returns the user's remote snapshot and its updated_at timestamp.
// A missing row maps to entities.ErrSnapshotNotFound.
func (c *Client) Fetch(ctx context.Context) (*entities.Snapshot, time.Time, error) {
	var resp snapshotResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/sync/snapshot", nil, &resp); err != nil {
		return nil, time.Time{}, err
	}
	return resp.Snapshot, resp.UpdatedAt, nil
}

// FetchStatus returns only the remote updated_at marker.
func (c *Client) FetchStatus(ctx context.Context) (time.Time, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/sync/status", nil, &resp); err != nil {
		return time.Time{}, err
	}
	return resp.UpdatedAt, nil
}

// Upsert writes the snapshot to the user's remote row, inserting it if the
// user has never synced, and returns the new updated_at.
func (c *Client) Upsert(ctx context.Context, snap *entities.Snapshot) (time.Time, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/sync/snapshot", upsertRequest{Snapshot: snap}, &resp); err != nil {
		return time.Time{}, err
	}
	return resp.UpdatedAt, nil
}

// Login authenticates against the server and returns the issued tokens.
// It works without a configured bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return entities.ErrSnapshotNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return entities.ErrUnauthorized
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
