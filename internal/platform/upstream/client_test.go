package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codeRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (r *codeRecorder) ObserveUpstream(_ string, code int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
}

func testClient(obs Observer) *Client {
	return NewClient(Config{
		Provider:   "test",
		RPS:        1000,
		Burst:      10,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		Observer:   obs,
	})
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "anicatalog/1.0", r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	rec := &codeRecorder{}
	var out map[string]string
	err := testClient(rec).GetJSON(context.Background(), srv.URL, nil, &out)

	require.NoError(t, err)
	assert.Equal(t, "yes", out["ok"])
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []int{503, 503, 200}, rec.codes)
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	var out any
	err := testClient(nil).GetJSON(context.Background(), srv.URL, nil, &out)

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(nil).Do(context.Background(), http.MethodGet, srv.URL, nil, nil)

	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]any{"echo": in["query"]})
	}))
	defer srv.Close()

	var out map[string]any
	err := testClient(nil).PostJSON(context.Background(), srv.URL, map[string]any{"query": "{ Page }"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "{ Page }", out["echo"])
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{Provider: "test", RPS: 1000, MaxRetries: 3, Backoff: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, http.MethodGet, srv.URL, nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
