package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"linkbridge/internal/store"
	"linkbridge/pkg/musiclink"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	ResolveDuration   *prometheus.HistogramVec
	TokenRefreshTotal *prometheus.CounterVec
}

// NewMetrics creates the service metrics on a private registry, so that several
// servers (as in tests) never collide on the global one.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkbridge_requests_total",
				Help: "Total number of resolution requests",
			},
			[]string{"operation", "outcome"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linkbridge_resolve_duration_seconds",
				Help:    "Time spent resolving a request",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		TokenRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkbridge_token_refresh_total",
				Help: "Total number of provider token refreshes",
			},
			[]string{"platform", "status"},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.ResolveDuration,
		m.TokenRefreshTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterMetadataCache exposes the memo's size and hit counters.
func (m *Metrics) RegisterMetadataCache(cache *store.MetadataCache) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "linkbridge_metadata_cache_entries",
				Help: "Number of source metadata entries currently cached",
			},
			func() float64 { return float64(cache.Len()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "linkbridge_metadata_cache_hits_total",
				Help: "Total number of source metadata cache hits",
			},
			func() float64 {
				hits, _ := cache.Stats()
				return float64(hits)
			},
		),
	)
}

// ObserveTokenRefresh is a musiclink.RefreshObserver.
func (m *Metrics) ObserveTokenRefresh(platform musiclink.Platform, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.TokenRefreshTotal.WithLabelValues(platform.String(), status).Inc()
}

func (m *Metrics) RecordRequest(operation, outcome string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.ResolveDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
