package catalog

import (
	"context"
	"time"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=catalog

// Adapter pulls one provider list and returns normalized items in provider
// order. It may return a partial batch instead of an error.
type Adapter interface {
	Fetch(ctx context.Context, limit int) ([]Item, error)
}

// AdapterFunc lets a plain function act as an Adapter.
type AdapterFunc func(ctx context.Context, limit int) ([]Item, error)

func (f AdapterFunc) Fetch(ctx context.Context, limit int) ([]Item, error) {
	return f(ctx, limit)
}

// Resolver maps a human readable title to an external id. Network failures
// collapse to ok=false.
type Resolver interface {
	Resolve(ctx context.Context, title string) (id string, ok bool)
}

// Store is the persistence backend behind the coordinator. Values are JSON.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Metrics receives coordinator events.
type Metrics interface {
	ObserveRefresh(catalogID string, duration time.Duration, err error)
	ObserveLookup(catalogID string, hit bool)
	ObserveCoalesced(catalogID string)
	SetCachedItems(catalogID string, n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRefresh(string, time.Duration, error) {}
func (noopMetrics) ObserveLookup(string, bool)                  {}
func (noopMetrics) ObserveCoalesced(string)                     {}
func (noopMetrics) SetCachedItems(string, int)                  {}
