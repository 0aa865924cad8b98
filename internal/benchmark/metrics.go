package benchmark

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryTotal    *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics registers per-query metrics with the default registry. Runs
// that never serve /metrics skip this and record nothing.
func InitMetrics() {
	metricsOnce.Do(func() {
		queryTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lakebench_queries_total",
				Help: "Benchmark queries executed by engine, query, and status",
			},
			[]string{"engine", "query", "status"},
		)

		queryDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lakebench_query_duration_seconds",
				Help:    "Benchmark query latency in seconds",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"engine", "query"},
		)

		metricsRegistered = true
	})
}

// recordQuery only observes latency for successful executions; error
// latencies would skew the histogram toward timeouts.
func recordQuery(engine, query, status string, d time.Duration) {
	if !metricsRegistered {
		return
	}
	queryTotal.WithLabelValues(engine, query, status).Inc()
	if status == "ok" {
		queryDuration.WithLabelValues(engine, query).Observe(d.Seconds())
	}
}
