package omdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anicatalog/internal/platform/upstream"
)

func TestBestMatch(t *testing.T) {
	candidates := []SearchResult{
		{Title: "Jujutsu Kaisen 0", IMDbID: "tt14331144"},
		{Title: "Jujutsu Kaisen", IMDbID: "tt12343534"},
		{Title: "Totally Different", IMDbID: "tt0000001"},
	}

	best, ok := BestMatch("Jujutsu Kaisen", candidates, DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, "tt12343534", best.IMDbID)

	_, ok = BestMatch("One Piece", candidates, DefaultThreshold)
	assert.False(t, ok)

	_, ok = BestMatch("Anything", nil, DefaultThreshold)
	assert.False(t, ok)
}

func TestBestMatch_ShorterCandidate(t *testing.T) {
	candidates := []SearchResult{{Title: "Frieren", IMDbID: "tt22248376"}}

	best, ok := BestMatch("Frieren!", candidates, DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, "tt22248376", best.IMDbID)
}

func newTestResolver(key, url string) *Resolver {
	return NewResolver(upstream.NewClient(upstream.Config{Provider: "omdb", RPS: 1000}), key, url, nil)
}

func TestResolver_Resolve(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "k", r.URL.Query().Get("apikey"))
		assert.Equal(t, "series", r.URL.Query().Get("type"))
		switch r.URL.Query().Get("s") {
		case "Dan Da Dan":
			_, _ = w.Write([]byte(`{"Response":"False","Error":"Series not found!"}`))
		case "DanDaDan":
			_, _ = w.Write([]byte(`{"Search":[{"Title":"Dandadan","Year":"2024–","imdbID":"tt30217403","Type":"series"}],"Response":"True"}`))
		default:
			_, _ = w.Write([]byte(`{"Response":"False"}`))
		}
	}))
	defer srv.Close()

	id, ok := newTestResolver("k", srv.URL).Resolve(context.Background(), "Dan Da Dan")

	require.True(t, ok)
	assert.Equal(t, "tt30217403", id)
	assert.EqualValues(t, 2, calls.Load())
}

func TestResolver_MissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without an api key")
	}))
	defer srv.Close()

	_, ok := newTestResolver("", srv.URL).Resolve(context.Background(), "Dan Da Dan")
	assert.False(t, ok)
}
