package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"anicatalog/internal/catalog"
	"anicatalog/internal/platform/upstream"
)

type PrometheusMetrics struct {
	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	lookups         *prometheus.CounterVec
	coalesced       *prometheus.CounterVec
	cachedItems     *prometheus.GaugeVec
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		refreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anicatalog_refresh_total",
				Help: "Total number of catalog refreshes by outcome",
			},
			[]string{"catalog", "status"},
		),
		refreshDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anicatalog_refresh_duration_seconds",
				Help:    "Duration of catalog refreshes in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"catalog"},
		),
		lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anicatalog_cache_lookups_total",
				Help: "Catalog cache lookups by result",
			},
			[]string{"catalog", "result"},
		),
		coalesced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anicatalog_refresh_coalesced_total",
				Help: "Requests that waited on a refresh started by another request",
			},
			[]string{"catalog"},
		),
		cachedItems: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "anicatalog_cached_items",
				Help: "Number of items currently cached per catalog",
			},
			[]string{"catalog"},
		),
		upstreamTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anicatalog_upstream_requests_total",
				Help: "Upstream HTTP requests by provider and status code",
			},
			[]string{"provider", "code"},
		),
		upstreamLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anicatalog_upstream_request_duration_seconds",
				Help:    "Latency of upstream HTTP requests in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"provider"},
		),
	}
}

func (p *PrometheusMetrics) ObserveRefresh(catalogID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.refreshTotal.WithLabelValues(catalogID, status).Inc()
	p.refreshDuration.WithLabelValues(catalogID).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveLookup(catalogID string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.lookups.WithLabelValues(catalogID, result).Inc()
}

func (p *PrometheusMetrics) ObserveCoalesced(catalogID string) {
	p.coalesced.WithLabelValues(catalogID).Inc()
}

func (p *PrometheusMetrics) SetCachedItems(catalogID string, n int) {
	p.cachedItems.WithLabelValues(catalogID).Set(float64(n))
}

// ObserveUpstream records one HTTP attempt. code 0 means a transport error.
func (p *PrometheusMetrics) ObserveUpstream(provider string, code int, duration time.Duration) {
	p.upstreamTotal.WithLabelValues(provider, strconv.Itoa(code)).Inc()
	p.upstreamLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

var (
	_ catalog.Metrics   = (*PrometheusMetrics)(nil)
	_ upstream.Observer = (*PrometheusMetrics)(nil)
)
