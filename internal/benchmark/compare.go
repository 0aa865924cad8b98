package benchmark

import "time"

// QueryDelta is one query's average latency movement between two runs.
// DeltaPct is positive when the candidate is slower.
type QueryDelta struct {
	Name      string        `json:"name"`
	Baseline  time.Duration `json:"baseline_avg"`
	Candidate time.Duration `json:"candidate_avg"`
	DeltaPct  float64       `json:"delta_pct"`
}

// Comparison pairs two results of the same workload. QPSRatio above 1 means
// the candidate pushed more queries per second than the baseline.
type Comparison struct {
	Baseline     *Result      `json:"baseline"`
	Candidate    *Result      `json:"candidate"`
	Queries      []QueryDelta `json:"queries"`
	WallDeltaPct float64      `json:"wall_delta_pct"`
	QPSRatio     float64      `json:"qps_ratio"`
}

// Compare matches queries by name; queries present in only one result are
// left out of the per-query deltas but still weigh on the aggregates.
func Compare(baseline, candidate *Result) *Comparison {
	cmp := &Comparison{Baseline: baseline, Candidate: candidate}

	base := make(map[string]QueryStats, len(baseline.Queries))
	for _, q := range baseline.Queries {
		base[q.Name] = q
	}
	for _, cq := range candidate.Queries {
		bq, ok := base[cq.Name]
		if !ok {
			continue
		}
		delta := QueryDelta{Name: cq.Name, Baseline: bq.Avg, Candidate: cq.Avg}
		if bq.Avg > 0 {
			delta.DeltaPct = (cq.Avg.Seconds() - bq.Avg.Seconds()) / bq.Avg.Seconds() * 100
		}
		cmp.Queries = append(cmp.Queries, delta)
	}

	if baseline.WallTime > 0 {
		cmp.WallDeltaPct = (candidate.WallTime.Seconds() - baseline.WallTime.Seconds()) /
			baseline.WallTime.Seconds() * 100
	}
	if baseline.QPS > 0 {
		cmp.QPSRatio = candidate.QPS / baseline.QPS
	}
	return cmp
}
