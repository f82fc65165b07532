package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniblog/miniblog/internal/notify"
)

func testPayload() notify.AlertPayload {
	return notify.AlertPayload{
		RecipientContact: "author@example.com",
		RecipientName:    "author",
		Subject:          "Post published: Go Tips",
		Body:             "Your post 'Go Tips' has been published!",
		PostID:           "post-1",
		PostSlug:         "go-tips",
		OccurredAt:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook url is required")
}

func TestSendAlert_PostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, AuthToken: "secret", Sender: "miniblog"})
	require.NoError(t, err)

	require.NoError(t, client.SendAlert(context.Background(), testPayload()))

	assert.Equal(t, "miniblog", got["sender"])
	assert.Equal(t, "author@example.com", got["recipient"])
	assert.Equal(t, "Post published: Go Tips", got["subject"])
	assert.Equal(t, "go-tips", got["post_slug"])
	assert.Equal(t, "2026-01-01T12:00:00Z", got["occurred_at"])
}

func TestSendAlert_NoAuthHeaderWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, client.SendAlert(context.Background(), testPayload()))
}

func TestSendAlert_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, RetryLimit: 1})
	require.NoError(t, err)

	require.NoError(t, client.SendAlert(context.Background(), testPayload()))
	assert.Equal(t, int64(2), calls.Load())
}

func TestSendAlert_ExhaustedRetriesReturnsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, RetryLimit: 1})
	require.NoError(t, err)

	err = client.SendAlert(context.Background(), testPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestSendAlert_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, RetryLimit: 3})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = client.SendAlert(ctx, testPayload())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
