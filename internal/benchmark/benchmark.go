// Package benchmark runs query workloads against an engine and reports
// latency, throughput, and whether the pool actually overlaps queries.
package benchmark

import (
	"sort"
	"time"

	"github.com/systmms/lakebench/internal/engine"
)

// QueryStats aggregates one named query across all workers and iterations.
type QueryStats struct {
	Name     string        `json:"name"`
	Count    int           `json:"count"`
	Failures int           `json:"failures"`
	Min      time.Duration `json:"min"`
	Avg      time.Duration `json:"avg"`
	Max      time.Duration `json:"max"`
	P95      time.Duration `json:"p95"`
}

// Result is the outcome of one workload run against one engine.
type Result struct {
	Engine      string           `json:"engine"`
	Workload    string           `json:"workload"`
	Concurrency int              `json:"concurrency"`
	Iterations  int              `json:"iterations"`
	WallTime    time.Duration    `json:"wall_time"`
	Total       int              `json:"total_queries"`
	Succeeded   int              `json:"succeeded"`
	SuccessRate float64          `json:"success_rate"`
	QPS         float64          `json:"queries_per_second"`
	Queries     []QueryStats     `json:"queries"`
	Pool        engine.PoolStats `json:"pool"`
}

// computeStats expects every duration to be a successful execution; failed
// executions contribute to Count but not to the latency figures.
func computeStats(name string, durations []time.Duration, failures int) QueryStats {
	qs := QueryStats{
		Name:     name,
		Count:    len(durations) + failures,
		Failures: failures,
	}
	if len(durations) == 0 {
		return qs
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	qs.Min = durations[0]
	qs.Max = durations[len(durations)-1]
	qs.Avg = sum / time.Duration(len(durations))
	qs.P95 = percentile(durations, 95)
	return qs
}

// percentile uses the nearest-rank method and expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
