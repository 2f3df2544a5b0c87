package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API server not running")
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (HTTP 500)")
	assert.False(t, IsConflict(err))
}

func TestClient_Status(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"engine": {"last_seen_item_id": "1183", "has_checkpoint": true, "policy": "all-unseen", "polls": 4, "notified": 2, "running": false},
			"schedule": {"interval": "5s", "next_run": "2026-03-01T12:00:05Z"},
			"rate_limit": {"requests": 412, "daily_limit": 5000, "reset_at": "2026-03-02T09:00:00Z"}
		}`))
	}))
	defer srv.Close()

	st, err := New(srv.URL + "/").Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1183", st.Engine.LastSeenItemID)
	assert.Equal(t, "all-unseen", st.Engine.Policy)
	assert.Equal(t, int64(4), st.Engine.Polls)
	require.NotNil(t, st.Schedule)
	assert.Equal(t, "5s", st.Schedule.Interval)
	require.NotNil(t, st.RateLimit)
	assert.Equal(t, int64(412), st.RateLimit.Requests)
	assert.Equal(t, int64(5000), st.RateLimit.DailyLimit)
}

func TestClient_Poll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		wantErr      bool
		wantConflict bool
	}{
		{name: "completed", status: http.StatusOK},
		{name: "cycle in progress", status: http.StatusConflict, wantErr: true, wantConflict: true},
		{name: "catalog down", status: http.StatusBadGateway, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/v1/poll", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status":"poll completed"}`))
			}))
			defer srv.Close()

			err := New(srv.URL).Poll(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantConflict, IsConflict(err))
		})
	}
}

func TestClient_State(t *testing.T) {
	t.Parallel()

	var stored State
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/state", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(stored)
		case http.MethodPut:
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			stored = State{LastSeenItemID: body["last_seen_item_id"], HasCheckpoint: true}
			_ = json.NewEncoder(w).Encode(stored)
		case http.MethodDelete:
			stored = State{}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	st, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.False(t, st.HasCheckpoint)

	st, err = c.SetState(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, "77", st.LastSeenItemID)
	assert.True(t, st.HasCheckpoint)

	st, err = c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "77", st.LastSeenItemID)

	require.NoError(t, c.ResetState(ctx))
	st, err = c.GetState(ctx)
	require.NoError(t, err)
	assert.False(t, st.HasCheckpoint)
	assert.Empty(t, st.LastSeenItemID)
}

func TestClient_WithHTTPClient(t *testing.T) {
	t.Parallel()

	hc := &http.Client{}
	c := New("http://example.invalid", WithHTTPClient(hc))
	assert.Same(t, hc, c.httpClient)
}
