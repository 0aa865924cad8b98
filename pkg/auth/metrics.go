package auth

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mintTotal     *prometheus.CounterVec
	mintDuration  *prometheus.HistogramVec
	credentialAge prometheus.Gauge
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// Metrics records credential lifecycle metrics. All methods are no-ops
// until InitMetrics has been called, so library users who never opt in pay
// nothing and register nothing with the default prometheus registry.
type Metrics struct{}

// NewMetrics returns a metrics sink. Recording is inert until InitMetrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// InitMetrics registers the credential metrics with the default
// registry. Call once at startup when metrics are wanted.
func InitMetrics() {
	metricsOnce.Do(func() {
		mintTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakebench_credential_mints_total",
				Help: "Credential mint attempts by trigger and status",
			},
			[]string{"trigger", "status"},
		)

		mintDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lakebench_credential_mint_duration_seconds",
				Help:    "Duration of credential mint operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"trigger"},
		)

		credentialAge = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "lakebench_credential_age_seconds",
				Help: "Age of the credential behind the last served snapshot",
			},
		)

		cacheHits = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lakebench_credential_cache_hits_total",
				Help: "Connection parameter requests served from cache",
			},
		)

		cacheMisses = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "lakebench_credential_cache_misses_total",
				Help: "Connection parameter requests that rebuilt the snapshot",
			},
		)

		metricsRegistered = true
	})
}

func (m *Metrics) recordMint(trigger, status string, d time.Duration) {
	if !metricsRegistered {
		return
	}
	if mintTotal != nil {
		mintTotal.WithLabelValues(trigger, status).Inc()
	}
	if mintDuration != nil {
		mintDuration.WithLabelValues(trigger).Observe(d.Seconds())
	}
}

func (m *Metrics) recordCredentialAge(age time.Duration) {
	if !metricsRegistered || credentialAge == nil {
		return
	}
	credentialAge.Set(age.Seconds())
}

func (m *Metrics) recordCacheHit() {
	if !metricsRegistered || cacheHits == nil {
		return
	}
	cacheHits.Inc()
}

func (m *Metrics) recordCacheMiss() {
	if !metricsRegistered || cacheMisses == nil {
		return
	}
	cacheMisses.Inc()
}

// IsMetricsRegistered reports whether InitMetrics has run.
func IsMetricsRegistered() bool {
	return metricsRegistered
}
