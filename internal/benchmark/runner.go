package benchmark

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/systmms/lakebench/internal/config"
	"github.com/systmms/lakebench/internal/engine"
	"github.com/systmms/lakebench/internal/logging"
)

// Runner executes workloads and concurrency proofs. The zero value is
// usable and logs nothing.
type Runner struct {
	Logger *logging.Logger
}

// tally holds one worker's private counters so workers never share state.
type tally struct {
	durations [][]time.Duration
	failures  []int
}

// Run fans the workload out over Concurrency workers, each executing every
// query Iterations times. Query errors are counted, not fatal; Run itself
// fails only when the workload is empty or the context is cancelled.
func (r *Runner) Run(ctx context.Context, eng engine.Engine, w config.Workload) (*Result, error) {
	if len(w.Queries) == 0 {
		return nil, fmt.Errorf("workload %q has no queries", w.Name)
	}
	workers := w.Concurrency
	if workers < 1 {
		workers = 1
	}
	iterations := w.Iterations
	if iterations < 1 {
		iterations = 1
	}
	logger := r.logger()
	engineName := eng.Name()

	logger.Info("Running workload %s against %s: %d workers, %d iterations, %d queries",
		w.Name, engineName, workers, iterations, len(w.Queries))

	tallies := make([]tally, workers)
	for i := range tallies {
		tallies[i].durations = make([][]time.Duration, len(w.Queries))
		tallies[i].failures = make([]int, len(w.Queries))
	}

	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	for i := range tallies {
		mine := &tallies[i]
		eg.Go(func() error {
			for iter := 0; iter < iterations; iter++ {
				for qi, q := range w.Queries {
					if err := ctx.Err(); err != nil {
						return err
					}
					qStart := time.Now()
					err := eng.Exec(ctx, q.SQL, q.Args...)
					elapsed := time.Since(qStart)
					if err != nil {
						mine.failures[qi]++
						recordQuery(engineName, q.Name, "error", elapsed)
						logger.Debug("Query %s failed: %v", q.Name, err)
						continue
					}
					mine.durations[qi] = append(mine.durations[qi], elapsed)
					recordQuery(engineName, q.Name, "ok", elapsed)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	wall := time.Since(start)

	res := &Result{
		Engine:      engineName,
		Workload:    w.Name,
		Concurrency: workers,
		Iterations:  iterations,
		WallTime:    wall,
		Pool:        eng.PoolStats(),
	}
	for qi, q := range w.Queries {
		var durations []time.Duration
		var failures int
		for i := range tallies {
			durations = append(durations, tallies[i].durations[qi]...)
			failures += tallies[i].failures[qi]
		}
		qs := computeStats(q.Name, durations, failures)
		res.Queries = append(res.Queries, qs)
		res.Total += qs.Count
		res.Succeeded += qs.Count - qs.Failures
	}
	if res.Total > 0 {
		res.SuccessRate = float64(res.Succeeded) / float64(res.Total) * 100
	}
	if wall > 0 {
		res.QPS = float64(res.Succeeded) / wall.Seconds()
	}

	logger.Info("Workload %s finished in %s: %d/%d queries ok",
		w.Name, wall.Round(time.Millisecond), res.Succeeded, res.Total)
	return res, nil
}

func (r *Runner) logger() *logging.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	l := logging.New(false, true)
	l.SetOutput(io.Discard)
	return l
}
