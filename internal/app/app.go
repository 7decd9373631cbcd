// Package app assembles the catalog service from configuration. Both the
// API server and the operator CLI build their object graph here.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"anicatalog/internal/catalog"
	"anicatalog/internal/config"
	"anicatalog/internal/platform/anilist"
	"anicatalog/internal/platform/imdb"
	"anicatalog/internal/platform/netflix"
	"anicatalog/internal/platform/omdb"
	"anicatalog/internal/platform/ranker"
	"anicatalog/internal/platform/upstream"
	"anicatalog/internal/resolver"
	"anicatalog/internal/runs"
	"anicatalog/internal/source"
	"anicatalog/internal/store"
	"anicatalog/internal/telemetry"
)

// runHistory is how many runs the in-memory run log keeps per process.
const runHistory = 500

type metricsSink interface {
	catalog.Metrics
	upstream.Observer
}

type App struct {
	Config      config.Config
	Logger      *zap.Logger
	Registry    *catalog.Registry
	Coordinator *catalog.Coordinator
	Service     *catalog.Service
	Manifest    catalog.Manifest
	Store       store.Backend
	Runs        runs.Repository
	// Pool is nil unless a Postgres DSN is configured.
	Pool *pgxpool.Pool
}

// Build wires every component. registerer may be nil, in which case no
// metrics are exported.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, registerer prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var metrics metricsSink = telemetry.NewNoopMetrics()
	if registerer != nil && cfg.EnableMetrics {
		metrics = telemetry.NewPrometheusMetrics(registerer)
	}

	a := &App{Config: cfg, Logger: logger}

	if cfg.DBDSN != "" {
		pool, err := openPool(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		a.Pool = pool
		logger.Info("database connection OK", zap.String("dsn", RedactDSN(cfg.DBDSN)))
	}

	backend, err := store.Open(ctx, store.Options{Driver: cfg.StoreDriver, Path: cfg.StorePath, Pool: a.Pool})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = backend

	if a.Pool != nil {
		a.Runs = runs.NewPostgresRepo(a.Pool)
	} else {
		a.Runs = runs.NewMemoryRepo(runHistory)
	}

	hc := newClients(cfg, metrics)
	imdbResolver := imdb.NewResolver(hc.imdb, "", logger.Named("imdb"))
	omdbResolver := omdb.NewResolver(hc.omdb, cfg.OMDbAPIKey, "", logger.Named("omdb"))

	defs := source.Definitions(source.Providers{
		AniList:        anilist.NewClient(hc.anilist, ""),
		Ranker:         ranker.NewClient(hc.ranker, ""),
		Netflix:        netflix.NewClient(hc.netflix, ""),
		Resolver:       imdbResolver,
		RankerResolver: resolver.NewChain(omdbResolver, imdbResolver),
	}, source.Limits{
		AniList: cfg.AniListLimit,
		Ranker:  cfg.RankerLimit,
		Netflix: cfg.NetflixLimit,
	}, cfg.ResolveConcurrency, logger.Named("source"))

	a.Registry, err = catalog.NewRegistry(defs...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build registry: %w", err)
	}

	a.Coordinator = catalog.NewCoordinator(a.Registry,
		catalog.WithStore(a.Store),
		catalog.WithMetrics(metrics),
		catalog.WithRunLog(a.Runs),
		catalog.WithLogger(logger.Named("coordinator")),
	)

	opts := []catalog.ServiceOption{catalog.WithServiceLogger(logger.Named("catalog"))}
	if problem := cfg.Problem(); problem != nil {
		logger.Warn("service misconfigured, catalogs will be empty", zap.Error(problem))
		opts = append(opts, catalog.WithConfigError(problem))
	}
	a.Service = catalog.NewService(a.Registry, a.Coordinator, cfg.RefreshTTL, opts...)
	a.Manifest = catalog.NewManifest(a.Registry, cfg.Version)

	return a, nil
}

// Ping reports database readiness. Without a database it always succeeds.
func (a *App) Ping(ctx context.Context) error {
	if a.Pool == nil {
		return nil
	}
	return a.Pool.Ping(ctx)
}

func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("close store", zap.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

type clients struct {
	anilist, ranker, netflix, imdb, omdb *upstream.Client
}

func newClients(cfg config.Config, observer upstream.Observer) clients {
	mk := func(provider string, rps float64) *upstream.Client {
		return upstream.NewClient(upstream.Config{
			Provider:   provider,
			RPS:        rps,
			Burst:      2,
			MaxRetries: cfg.UpstreamMaxRetries,
			Timeout:    cfg.UpstreamTimeout,
			Observer:   observer,
		})
	}
	// Resolvers see one request per item, so they get more headroom.
	return clients{
		anilist: mk("anilist", cfg.UpstreamRPS),
		ranker:  mk("ranker", cfg.UpstreamRPS),
		netflix: mk("netflix", cfg.UpstreamRPS),
		imdb:    mk("imdb", cfg.UpstreamRPS*float64(cfg.ResolveConcurrency)),
		omdb:    mk("omdb", cfg.UpstreamRPS*float64(cfg.ResolveConcurrency)),
	}
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", RedactDSN(dsn), err)
	}
	return pool, nil
}

// RedactDSN hides the credentials part of a connection string.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
