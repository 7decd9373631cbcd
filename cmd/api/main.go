package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"anicatalog/internal/app"
	"anicatalog/internal/config"
	"anicatalog/internal/httpx"
	"anicatalog/internal/telemetry"
)

// maxRequestBytes bounds request bodies; only the refresh endpoint takes a
// POST and it has no body.
const maxRequestBytes = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.Build(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatal("cannot build service", zap.Error(err))
	}
	defer a.Close()

	deps := routerDeps{
		Service:     a.Service,
		Manifest:    a.Manifest,
		Runs:        a.Runs,
		Has:         a.Registry.Has,
		Ping:        a.Ping,
		AdminSecret: cfg.AdminJWTSecret,
		Logger:      logger,
	}
	if cfg.EnableMetrics {
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	router := newRouter(deps)

	middlewares := []func(http.Handler) http.Handler{
		httpx.RecoveryMiddleware(logger),
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.AllowedOrigins()),
		httpx.RequestSizeLimitMiddleware(maxRequestBytes),
	}
	if cfg.RateLimitRPS > 0 {
		limiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
		middlewares = append(middlewares, limiter.Middleware)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpx.Chain(router, middlewares...),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a catalog request may wait for a full upstream refresh
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.StoreDriver),
		zap.Duration("refresh_ttl", cfg.RefreshTTL),
		zap.Strings("catalogs", a.Registry.IDs()),
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
