// Package config loads process configuration from the environment, with
// .env files as a fallback for local runs.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingOMDbKey is reported when the OMDb key is absent. The service
// still starts but serves empty catalogs.
var ErrMissingOMDbKey = errors.New("OMDB_API_KEY is not set")

type Config struct {
	Addr               string        `mapstructure:"APP_ADDR" validate:"required"`
	Version            string        `mapstructure:"APP_VERSION"`
	OMDbAPIKey         string        `mapstructure:"OMDB_API_KEY"`
	RefreshTTL         time.Duration `mapstructure:"REFRESH_TTL" validate:"gt=0"`
	AniListLimit       int           `mapstructure:"ANILIST_LIMIT" validate:"gt=0,lte=50"`
	RankerLimit        int           `mapstructure:"RANKER_LIMIT" validate:"gt=0,lte=200"`
	NetflixLimit       int           `mapstructure:"NETFLIX_LIMIT" validate:"gt=0,lte=200"`
	ResolveConcurrency int           `mapstructure:"RESOLVE_CONCURRENCY" validate:"gt=0,lte=64"`
	StoreDriver        string        `mapstructure:"STORE_DRIVER" validate:"oneof=memory bolt postgres"`
	StorePath          string        `mapstructure:"STORE_PATH" validate:"required_if=StoreDriver bolt"`
	DBDSN              string        `mapstructure:"DB_DSN" validate:"required_if=StoreDriver postgres"`
	AdminJWTSecret     string        `mapstructure:"ADMIN_JWT_SECRET"`
	LogLevel           string        `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat          string        `mapstructure:"LOG_FORMAT" validate:"oneof=json console"`
	CORSAllowedOrigins string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST" validate:"gte=0"`
	UpstreamRPS        float64       `mapstructure:"UPSTREAM_RPS" validate:"gt=0"`
	UpstreamMaxRetries int           `mapstructure:"UPSTREAM_MAX_RETRIES" validate:"gte=0,lte=10"`
	UpstreamTimeout    time.Duration `mapstructure:"UPSTREAM_TIMEOUT" validate:"gt=0"`
	EnableMetrics      bool          `mapstructure:"ENABLE_METRICS"`
	EnableHSTS         bool          `mapstructure:"ENABLE_HSTS"`
}

var defaults = map[string]any{
	"APP_ADDR":             ":7000",
	"APP_VERSION":          "1.0.0",
	"OMDB_API_KEY":         "",
	"REFRESH_TTL":          "24h",
	"ANILIST_LIMIT":        30,
	"RANKER_LIMIT":         50,
	"NETFLIX_LIMIT":        30,
	"RESOLVE_CONCURRENCY":  8,
	"STORE_DRIVER":         "memory",
	"STORE_PATH":           "data/catalog.db",
	"DB_DSN":               "",
	"ADMIN_JWT_SECRET":     "",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
	"CORS_ALLOWED_ORIGINS": "*",
	"RATE_LIMIT_RPS":       20.0,
	"RATE_LIMIT_BURST":     40,
	"UPSTREAM_RPS":         2.0,
	"UPSTREAM_MAX_RETRIES": 3,
	"UPSTREAM_TIMEOUT":     "15s",
	"ENABLE_METRICS":       true,
	"ENABLE_HSTS":          false,
}

// LoadEnvFiles reads .env and .env.local from the working directory.
// Variables already set in the process environment win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads the environment (after LoadEnvFiles) and validates it.
func Load() (Config, error) {
	LoadEnvFiles()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	return v
}

// FromViper decodes and validates a config from v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Problem reports configuration that leaves the service running but
// unable to serve catalogs.
func (c Config) Problem() error {
	if strings.TrimSpace(c.OMDbAPIKey) == "" {
		return ErrMissingOMDbKey
	}
	return nil
}

func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
