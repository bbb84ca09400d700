package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/core/internal/domain/entities"
)

func TestFetchSendsBearerToken(t *testing.T) {
	updatedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/sync/snapshot", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"snapshot":   entities.DefaultCatalog(),
			"updated_at": updatedAt,
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "tok-123")
	snap, at, err := client.Fetch(context.Background())

	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.NotNil(t, snap.FindSubtopic("math-1-1"))
	assert.True(t, at.Equal(updatedAt))
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"No snapshot stored"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, "tok")
	_, _, err := client.Fetch(context.Background())
	assert.ErrorIs(t, err, entities.ErrSnapshotNotFound)
}

func TestAuthFailuresMapToUnauthorized(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		client := New(srv.URL, "expired")
		_, err := client.FetchStatus(context.Background())
		assert.ErrorIs(t, err, entities.ErrUnauthorized, "status %d", code)

		srv.Close()
	}
}

func TestServerErrorIncludesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, "tok")
	_, _, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "boom")
}

func TestUpsertSendsSnapshotAndReturnsMarker(t *testing.T) {
	updatedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	var received struct {
		Snapshot *entities.Snapshot `json:"snapshot"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/sync/snapshot", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(map[string]interface{}{"updated_at": updatedAt})
	}))
	defer srv.Close()

	snap := entities.DefaultCatalog()
	task := entities.NewTask("revise", time.Now())
	require.NoError(t, snap.AddTask("math-1-1", task))

	client := New(srv.URL, "tok")
	at, err := client.Upsert(context.Background(), snap)

	require.NoError(t, err)
	assert.True(t, at.Equal(updatedAt))
	require.NotNil(t, received.Snapshot)
	assert.Equal(t, 1, received.Snapshot.TaskCount())
}

func TestFetchStatus(t *testing.T) {
	updatedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sync/status", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"updated_at": updatedAt})
	}))
	defer srv.Close()

	client := New(srv.URL, "tok")
	at, err := client.FetchStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, at.Equal(updatedAt))
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ada@example.com", creds["email"])

		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "acc",
			"refresh_token": "ref",
			"user_id":       "u1",
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	resp, err := client.Login(context.Background(), "ada@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "acc", resp.AccessToken)
	assert.Equal(t, "ref", resp.RefreshToken)
	assert.Equal(t, "u1", resp.UserID)
}

func TestLoginBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL, "")
	_, err := client.Login(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, entities.ErrUnauthorized)
}
