package plane

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsAuthHeader(t *testing.T) {
	var gotKey, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-key")
	var out map[string]any
	require.NoError(t, client.Get(context.Background(), "/ping", &out))

	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClientRetriesOn429(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key")
	var out map[string]bool
	require.NoError(t, client.Get(context.Background(), "/limited", &out))

	assert.True(t, out["ok"])
	assert.Equal(t, int32(3), hits.Load())
}

func TestClientExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key")
	err := client.Get(context.Background(), "/limited", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Contains(t, err.Error(), "rate limited (429)")
}

func TestClientErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Detail: "Not found."})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key")
	err := client.Get(context.Background(), "/missing", nil)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not found.", apiErr.Detail)
}

func TestClientUnauthorizedIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-key")
	err := client.Get(context.Background(), "/anything", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "API key")
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetryAfterDuration(t *testing.T) {
	assert.Equal(t, "2s", retryAfterDuration("2", 0).String())
	assert.Equal(t, "1s", retryAfterDuration("", 0).String())
	assert.Equal(t, "4s", retryAfterDuration("", 2).String())
	assert.Equal(t, "30s", retryAfterDuration("", 10).String(), "backoff is capped")
	assert.Equal(t, "1s", retryAfterDuration("soon", 0).String(), "bad header falls back")
}
