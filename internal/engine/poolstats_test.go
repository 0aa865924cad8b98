package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoolStat returns fixed values so every exported series is checkable.
type fakePoolStat struct {
	acquireCount         int64
	acquireDuration      time.Duration
	acquiredConns        int32
	canceledAcquireCount int64
	constructingConns    int32
	emptyAcquireCount    int64
	idleConns            int32
	maxConns             int32
	totalConns           int32
	newConnsCount        int64
	lifetimeDestroys     int64
	idleDestroys         int64
}

func (f *fakePoolStat) AcquireCount() int64            { return f.acquireCount }
func (f *fakePoolStat) AcquireDuration() time.Duration { return f.acquireDuration }
func (f *fakePoolStat) AcquiredConns() int32           { return f.acquiredConns }
func (f *fakePoolStat) CanceledAcquireCount() int64    { return f.canceledAcquireCount }
func (f *fakePoolStat) ConstructingConns() int32       { return f.constructingConns }
func (f *fakePoolStat) EmptyAcquireCount() int64       { return f.emptyAcquireCount }
func (f *fakePoolStat) IdleConns() int32               { return f.idleConns }
func (f *fakePoolStat) MaxConns() int32                { return f.maxConns }
func (f *fakePoolStat) TotalConns() int32              { return f.totalConns }
func (f *fakePoolStat) NewConnsCount() int64           { return f.newConnsCount }
func (f *fakePoolStat) MaxLifetimeDestroyCount() int64 { return f.lifetimeDestroys }
func (f *fakePoolStat) MaxIdleDestroyCount() int64     { return f.idleDestroys }

// TestPoolCollectorCollect checks every exported series, value, and label.
func TestPoolCollectorCollect(t *testing.T) {
	t.Parallel()

	stat := &fakePoolStat{
		acquireCount:         1,
		acquireDuration:      2 * time.Second,
		acquiredConns:        3,
		canceledAcquireCount: 4,
		constructingConns:    5,
		emptyAcquireCount:    6,
		idleConns:            7,
		maxConns:             8,
		totalConns:           9,
		newConnsCount:        10,
		lifetimeDestroys:     11,
		idleDestroys:         12,
	}
	collector := newPoolCollector(func() poolStat { return stat }, "lakebase")

	expected := `
# HELP pgxpool_acquire_count Cumulative count of successful acquires from the pool.
# TYPE pgxpool_acquire_count counter
pgxpool_acquire_count{pool="lakebase"} 1
# HELP pgxpool_acquire_duration_seconds_total Total duration of all successful acquires from the pool.
# TYPE pgxpool_acquire_duration_seconds_total counter
pgxpool_acquire_duration_seconds_total{pool="lakebase"} 2
# HELP pgxpool_acquired_conns Number of currently acquired connections in the pool.
# TYPE pgxpool_acquired_conns gauge
pgxpool_acquired_conns{pool="lakebase"} 3
# HELP pgxpool_canceled_acquire_count Cumulative count of acquires from the pool canceled by a context.
# TYPE pgxpool_canceled_acquire_count counter
pgxpool_canceled_acquire_count{pool="lakebase"} 4
# HELP pgxpool_constructing_conns Number of connections with construction in progress in the pool.
# TYPE pgxpool_constructing_conns gauge
pgxpool_constructing_conns{pool="lakebase"} 5
# HELP pgxpool_empty_acquire Cumulative count of acquires that waited because the pool was empty.
# TYPE pgxpool_empty_acquire counter
pgxpool_empty_acquire{pool="lakebase"} 6
# HELP pgxpool_idle_conns Number of currently idle connections in the pool.
# TYPE pgxpool_idle_conns gauge
pgxpool_idle_conns{pool="lakebase"} 7
# HELP pgxpool_max_conns Maximum size of the pool.
# TYPE pgxpool_max_conns gauge
pgxpool_max_conns{pool="lakebase"} 8
# HELP pgxpool_total_conns Total number of connections currently in the pool.
# TYPE pgxpool_total_conns gauge
pgxpool_total_conns{pool="lakebase"} 9
# HELP pgxpool_new_conns_count Cumulative count of new connections opened.
# TYPE pgxpool_new_conns_count counter
pgxpool_new_conns_count{pool="lakebase"} 10
# HELP pgxpool_max_lifetime_destroy_count Cumulative count of connections destroyed because they reached MaxConnLifetime.
# TYPE pgxpool_max_lifetime_destroy_count counter
pgxpool_max_lifetime_destroy_count{pool="lakebase"} 11
# HELP pgxpool_max_idle_destroy_count Cumulative count of connections destroyed because they reached MaxConnIdleTime.
# TYPE pgxpool_max_idle_destroy_count counter
pgxpool_max_idle_destroy_count{pool="lakebase"} 12
`

	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected)))
}

// TestPoolCollectorDescribe checks that every series registers a distinct
// descriptor.
func TestPoolCollectorDescribe(t *testing.T) {
	t.Parallel()

	collector := newPoolCollector(func() poolStat { return &fakePoolStat{} }, "lakebase")

	ch := make(chan *prometheus.Desc, 32)
	collector.Describe(ch)
	close(ch)

	seen := make(map[string]struct{})
	for desc := range ch {
		seen[desc.String()] = struct{}{}
	}
	assert.Len(t, seen, 12)
}

// TestPoolCollectorRegisters checks compatibility with a real registry; two
// pools with different names must coexist.
func TestPoolCollectorRegisters(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(newPoolCollector(func() poolStat { return &fakePoolStat{maxConns: 50} }, "lakebase")))
	require.NoError(t, registry.Register(newPoolCollector(func() poolStat { return &fakePoolStat{maxConns: 10} }, "baseline")))

	families, err := registry.Gather()
	require.NoError(t, err)

	var maxSeries int
	for _, fam := range families {
		if fam.GetName() == "pgxpool_max_conns" {
			maxSeries = len(fam.GetMetric())
		}
	}
	assert.Equal(t, 2, maxSeries)
}
