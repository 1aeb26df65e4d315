// Package metrics exposes Prometheus instrumentation for the moderation
// pipeline: check outcomes, latency, provider cost, and the sizes of the
// keyed limiter/cache maps.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's instruments. A nil *Metrics is valid and
// records nothing, so instrumentation stays optional at call sites.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal   *prometheus.CounterVec
	checkDuration prometheus.Histogram
	providerCost  prometheus.Counter
	framesSampled prometheus.Counter
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "checks_total",
			Help:      "Moderation checks by outcome (result, error, rate_limited, superseded).",
		}, []string{"outcome"}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "check_duration_seconds",
			Help:      "End-to-end duration of delivered checks, debounce excluded.",
			Buckets:   prometheus.DefBuckets,
		}),
		providerCost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "provider_cost_usd_total",
			Help:      "Cumulative provider-reported scoring cost in USD.",
		}),
		framesSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "video_frames_sampled_total",
			Help:      "Video frames extracted for moderation.",
		}),
	}

	registry.MustRegister(m.checksTotal, m.checkDuration, m.providerCost, m.framesSampled)
	return m
}

// ObserveCheck records one delivered check outcome and its duration.
func (m *Metrics) ObserveCheck(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.checkDuration.Observe(duration.Seconds())
	}
}

// CountOutcome records an outcome with no associated duration
// (a superseded check never ran to completion).
func (m *Metrics) CountOutcome(outcome string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
}

// AddCost accumulates provider-reported cost.
func (m *Metrics) AddCost(usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.providerCost.Add(usd)
}

// AddFrames counts sampled video frames.
func (m *Metrics) AddFrames(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.framesSampled.Add(float64(n))
}

// TrackSizes registers gauges reading the limiter and cache map sizes.
// The funcs are called at scrape time; pass nil for either to skip it.
func (m *Metrics) TrackSizes(tenantsTracked, tenantsCached func() int) {
	if m == nil {
		return
	}
	if tenantsTracked != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sentinel",
			Name:      "ratelimit_tenants",
			Help:      "Tenants currently tracked by the rate limiter.",
		}, func() float64 { return float64(tenantsTracked()) }))
	}
	if tenantsCached != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sentinel",
			Name:      "tenant_cache_entries",
			Help:      "Entries in the tenant config cache.",
		}, func() float64 { return float64(tenantsCached()) }))
	}
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
