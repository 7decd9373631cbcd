package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anicatalog/internal/testutil"
)

func exerciseBackend(t *testing.T, b Backend, key string) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, key, []byte(`{"items":[]}`)))
	require.NoError(t, b.Set(ctx, key, []byte(`{"items":[{"id":"tt1"}]}`)))

	v, ok, err := b.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"items":[{"id":"tt1"}]}`, string(v))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseBackend(t, m, "catalog:top-anilist")

	v, _, _ := m.Get(context.Background(), "catalog:top-anilist")
	v[0] = 'X'
	again, _, _ := m.Get(context.Background(), "catalog:top-anilist")
	assert.Equal(t, byte('{'), again[0], "returned values are copies")
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "catalog.db")

	b, err := OpenBolt(path)
	require.NoError(t, err)
	exerciseBackend(t, b, "catalog:top-anilist")
	require.NoError(t, b.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(context.Background(), "catalog:top-anilist")
	require.NoError(t, err)
	require.True(t, ok, "snapshot survives reopen")
	assert.Contains(t, string(v), "tt1")
}

func TestBolt_RequiresPath(t *testing.T) {
	_, err := OpenBolt("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = Open(ctx, Options{Driver: DriverBolt, Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &Bolt{}, b)
	require.NoError(t, b.Close())

	_, err = Open(ctx, Options{Driver: DriverPostgres})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: "redis"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestPostgres(t *testing.T) {
	db := testutil.PostgresPool(t)
	key := "catalog:test-" + time.Now().Format("150405.000000")
	exerciseBackend(t, NewPostgres(db), key)

	_, _ = db.Exec(context.Background(), `DELETE FROM catalog_cache WHERE key = $1`, key)
}
