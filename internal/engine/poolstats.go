package engine

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	_ prometheus.Collector = (*PoolCollector)(nil)
	_ poolStat             = (*pgxpool.Stat)(nil)
)

// poolStat is the slice of pgxpool.Stat the collector reads. Tests substitute
// fixed values.
type poolStat interface {
	AcquireCount() int64
	AcquireDuration() time.Duration
	AcquiredConns() int32
	CanceledAcquireCount() int64
	ConstructingConns() int32
	EmptyAcquireCount() int64
	IdleConns() int32
	MaxConns() int32
	TotalConns() int32
	NewConnsCount() int64
	MaxLifetimeDestroyCount() int64
	MaxIdleDestroyCount() int64
}

type statFunc func() poolStat

// Stater is the stats side of a pgx pool. *pgxpool.Pool satisfies it.
type Stater interface {
	Stat() *pgxpool.Stat
}

// PoolCollector exports pgx pool statistics as prometheus metrics. The pool
// name rides as a constant label, so collectors for several pools coexist in
// one registry.
type PoolCollector struct {
	stat statFunc

	acquireCount         *prometheus.Desc
	acquireDuration      *prometheus.Desc
	acquiredConns        *prometheus.Desc
	canceledAcquireCount *prometheus.Desc
	constructingConns    *prometheus.Desc
	emptyAcquireCount    *prometheus.Desc
	idleConns            *prometheus.Desc
	maxConns             *prometheus.Desc
	totalConns           *prometheus.Desc
	newConnsCount        *prometheus.Desc
	lifetimeDestroys     *prometheus.Desc
	idleDestroys         *prometheus.Desc
}

// NewPoolCollector builds a collector over the given pool.
func NewPoolCollector(s Stater, pool string) *PoolCollector {
	return newPoolCollector(func() poolStat { return s.Stat() }, pool)
}

func newPoolCollector(fn statFunc, pool string) *PoolCollector {
	labels := prometheus.Labels{"pool": pool}
	return &PoolCollector{
		stat: fn,
		acquireCount: prometheus.NewDesc(
			"pgxpool_acquire_count",
			"Cumulative count of successful acquires from the pool.",
			nil, labels),
		acquireDuration: prometheus.NewDesc(
			"pgxpool_acquire_duration_seconds_total",
			"Total duration of all successful acquires from the pool.",
			nil, labels),
		acquiredConns: prometheus.NewDesc(
			"pgxpool_acquired_conns",
			"Number of currently acquired connections in the pool.",
			nil, labels),
		canceledAcquireCount: prometheus.NewDesc(
			"pgxpool_canceled_acquire_count",
			"Cumulative count of acquires from the pool canceled by a context.",
			nil, labels),
		constructingConns: prometheus.NewDesc(
			"pgxpool_constructing_conns",
			"Number of connections with construction in progress in the pool.",
			nil, labels),
		emptyAcquireCount: prometheus.NewDesc(
			"pgxpool_empty_acquire",
			"Cumulative count of acquires that waited because the pool was empty.",
			nil, labels),
		idleConns: prometheus.NewDesc(
			"pgxpool_idle_conns",
			"Number of currently idle connections in the pool.",
			nil, labels),
		maxConns: prometheus.NewDesc(
			"pgxpool_max_conns",
			"Maximum size of the pool.",
			nil, labels),
		totalConns: prometheus.NewDesc(
			"pgxpool_total_conns",
			"Total number of connections currently in the pool.",
			nil, labels),
		newConnsCount: prometheus.NewDesc(
			"pgxpool_new_conns_count",
			"Cumulative count of new connections opened.",
			nil, labels),
		lifetimeDestroys: prometheus.NewDesc(
			"pgxpool_max_lifetime_destroy_count",
			"Cumulative count of connections destroyed because they reached MaxConnLifetime.",
			nil, labels),
		idleDestroys: prometheus.NewDesc(
			"pgxpool_max_idle_destroy_count",
			"Cumulative count of connections destroyed because they reached MaxConnIdleTime.",
			nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireDuration, prometheus.CounterValue, s.AcquireDuration().Seconds())
	ch <- prometheus.MustNewConstMetric(c.acquiredConns, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.canceledAcquireCount, prometheus.CounterValue, float64(s.CanceledAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.constructingConns, prometheus.GaugeValue, float64(s.ConstructingConns()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquireCount, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.newConnsCount, prometheus.CounterValue, float64(s.NewConnsCount()))
	ch <- prometheus.MustNewConstMetric(c.lifetimeDestroys, prometheus.CounterValue, float64(s.MaxLifetimeDestroyCount()))
	ch <- prometheus.MustNewConstMetric(c.idleDestroys, prometheus.CounterValue, float64(s.MaxIdleDestroyCount()))
}
