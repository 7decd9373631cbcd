package catalog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Service is the boundary between inbound catalog requests and the
// coordinator. It never fails: every problem below it becomes an empty
// response and a log line.
type Service struct {
	registry    *Registry
	coordinator *Coordinator
	ttl         time.Duration
	configErr   error
	logger      *zap.Logger
}

type ServiceOption func(*Service)

// WithConfigError marks the service as misconfigured, for example when a
// required upstream credential is missing. All catalogs answer empty.
func WithConfigError(err error) ServiceOption {
	return func(s *Service) { s.configErr = err }
}

func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(registry *Registry, coordinator *Coordinator, ttl time.Duration, opts ...ServiceOption) *Service {
	s := &Service{
		registry:    registry,
		coordinator: coordinator,
		ttl:         ttl,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) TTL() time.Duration { return s.ttl }

func (s *Service) Ready() error { return s.configErr }

func (s *Service) Catalog(ctx context.Context, req Request) (resp Response) {
	log := s.logger.With(zap.String("catalog", req.CatalogID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("catalog request panicked", zap.Any("panic", r))
			resp = emptyResponse()
		}
	}()

	if s.configErr != nil {
		log.Warn("catalog unavailable, service misconfigured", zap.Error(s.configErr))
		return emptyResponse()
	}
	if !s.registry.Has(req.CatalogID) {
		log.Debug("unknown catalog requested")
		return emptyResponse()
	}
	if req.Type != "" && req.Type != KindSeries {
		return emptyResponse()
	}

	items, err := s.coordinator.GetOrRefresh(ctx, req.CatalogID, s.ttl)
	if err != nil {
		log.Warn("catalog request ended before refresh finished", zap.Error(err))
	}

	if !req.Selected.Contains(req.CatalogID) {
		return emptyResponse()
	}
	if items == nil {
		return emptyResponse()
	}
	return Response{Items: items}
}

// Status lists the cache state of every catalog.
func (s *Service) Status(ctx context.Context) []Status {
	return s.coordinator.Status(ctx)
}

// Refresh forces a refresh of one catalog and waits for it.
func (s *Service) Refresh(ctx context.Context, catalogID string) (int, error) {
	if s.configErr != nil {
		return 0, fmt.Errorf("refresh %s: %w", catalogID, s.configErr)
	}
	if !s.registry.Has(catalogID) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCatalog, catalogID)
	}
	items, err := s.coordinator.ForceRefresh(ctx, catalogID, s.ttl)
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("manual refresh failed", zap.String("catalog", catalogID), zap.Error(err))
	}
	return len(items), err
}
