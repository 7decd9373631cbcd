package telemetry

import (
	"time"

	"anicatalog/internal/catalog"
	"anicatalog/internal/platform/upstream"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveRefresh(_ string, _ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveLookup(_ string, _ bool) {}

func (n *NoopMetrics) ObserveCoalesced(_ string) {}

func (n *NoopMetrics) SetCachedItems(_ string, _ int) {}

func (n *NoopMetrics) ObserveUpstream(_ string, _ int, _ time.Duration) {}

var (
	_ catalog.Metrics   = (*NoopMetrics)(nil)
	_ upstream.Observer = (*NoopMetrics)(nil)
)
