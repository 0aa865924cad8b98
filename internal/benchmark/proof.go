package benchmark

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/systmms/lakebench/internal/engine"
)

// concurrentSpeedup is the floor above which a pool is considered to be
// overlapping queries. A serializing pool lands near 1.0 regardless of n;
// scheduler jitter alone does not push it past this.
const concurrentSpeedup = 1.5

// Proof is the outcome of the concurrency demonstration: the same n sleep
// queries run back to back, then fanned out against the pool.
type Proof struct {
	Engine     string        `json:"engine"`
	Query      string        `json:"query"`
	N          int           `json:"n"`
	Sleep      time.Duration `json:"sleep"`
	Sequential time.Duration `json:"sequential"`
	Concurrent time.Duration `json:"concurrent"`
	Speedup    float64       `json:"speedup"`
}

// Overlapped reports whether the concurrent pass beat the sequential one by
// enough to rule out a serializing pool.
func (p *Proof) Overlapped() bool {
	return p.Speedup >= concurrentSpeedup
}

// Proof runs n server-side sleep queries sequentially and then concurrently
// and compares wall times. Any query failure aborts the proof: a partial
// timing says nothing about the pool.
func (r *Runner) Proof(ctx context.Context, eng engine.Engine, n int, sleep time.Duration) (*Proof, error) {
	if n < 1 {
		n = 5
	}
	if sleep <= 0 {
		sleep = 500 * time.Millisecond
	}
	query := eng.SleepQuery(sleep)
	logger := r.logger()

	logger.Info("Concurrency proof on %s: %d queries of %q", eng.Name(), n, query)

	seqStart := time.Now()
	for i := 0; i < n; i++ {
		if err := eng.Exec(ctx, query); err != nil {
			return nil, fmt.Errorf("sequential pass: %w", err)
		}
	}
	sequential := time.Since(seqStart)
	logger.Debug("Sequential pass took %s", sequential.Round(time.Millisecond))

	conStart := time.Now()
	eg, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			return eng.Exec(gctx, query)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("concurrent pass: %w", err)
	}
	concurrent := time.Since(conStart)
	logger.Debug("Concurrent pass took %s", concurrent.Round(time.Millisecond))

	p := &Proof{
		Engine:     eng.Name(),
		Query:      query,
		N:          n,
		Sleep:      sleep,
		Sequential: sequential,
		Concurrent: concurrent,
	}
	if concurrent > 0 {
		p.Speedup = sequential.Seconds() / concurrent.Seconds()
	}
	return p, nil
}
