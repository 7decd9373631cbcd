package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"anicatalog/internal/catalog"
	"anicatalog/internal/httpx"
	"anicatalog/internal/runs"
)

type routerDeps struct {
	Service     *catalog.Service
	Manifest    catalog.Manifest
	Runs        runs.Repository
	Has         func(catalogID string) bool
	Ping        func(ctx context.Context) error
	Metrics     http.Handler
	AdminSecret string
	Logger      *zap.Logger
}

func newRouter(d routerDeps) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if d.Metrics != nil {
		router.Handle("GET /metrics", d.Metrics)
	}

	catalogHandler := catalog.NewHTTPHandler(d.Service, d.Manifest)
	catalogHandler.Register(router)

	runsHandler := runs.NewHTTPHandler(d.Runs, d.Has, d.Logger)
	router.HandleFunc("GET /v1/catalogs/{id}/runs", runsHandler.List)

	admin := httpx.AdminMiddleware(d.AdminSecret, d.Logger)
	router.Handle("POST /internal/catalogs/{id}/refresh", admin(http.HandlerFunc(catalogHandler.Refresh)))

	return router
}
