package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 30, cfg.AniListLimit)
	assert.Equal(t, 50, cfg.RankerLimit)
	assert.Equal(t, 8, cfg.ResolveConcurrency)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.True(t, cfg.EnableMetrics)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REFRESH_TTL", "6h")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "postgres://localhost/anicatalog")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("OMDB_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
	assert.NoError(t, cfg.Problem())
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OMDB_API_KEY=from_file\nRANKER_LIMIT=20\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("OMDB_API_KEY", "from_env")
	t.Setenv("RANKER_LIMIT", "")
	os.Unsetenv("RANKER_LIMIT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.OMDbAPIKey)
	assert.Equal(t, 20, cfg.RankerLimit)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := map[string][2]string{
		"unknown driver":     {"STORE_DRIVER", "redis"},
		"zero ttl":           {"REFRESH_TTL", "0s"},
		"postgres needs dsn": {"STORE_DRIVER", "postgres"},
		"bad level":          {"LOG_LEVEL", "loud"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestProblem_MissingKey(t *testing.T) {
	assert.ErrorIs(t, Config{}.Problem(), ErrMissingOMDbKey)
	assert.ErrorIs(t, Config{OMDbAPIKey: "  "}.Problem(), ErrMissingOMDbKey)
}
