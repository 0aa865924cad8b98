package engine

import (
	"context"
	"fmt"
	"time"
)

// HealthState classifies a pre-flight check outcome.
type HealthState string

const (
	HealthHealthy     HealthState = "healthy"
	HealthDegraded    HealthState = "degraded"
	HealthExhausted   HealthState = "exhausted"
	HealthUnreachable HealthState = "unreachable"
)

// HealthConfig tunes the pre-flight checks.
type HealthConfig struct {
	// LatencyThreshold marks the engine degraded when a ping takes longer.
	LatencyThreshold time.Duration
	// PoolWarnPct marks the engine degraded at this pool usage percentage.
	PoolWarnPct int
}

// DefaultHealthConfig returns the thresholds doctor and run use.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		LatencyThreshold: 500 * time.Millisecond,
		PoolWarnPct:      80,
	}
}

// Health is the outcome of one engine check.
type Health struct {
	Engine      string
	State       HealthState
	PingLatency time.Duration
	Pool        PoolStats
	Messages    []string
}

// Healthy reports whether the engine can take benchmark load. Degraded still
// counts; exhausted and unreachable do not.
func (h Health) Healthy() bool {
	return h.State == HealthHealthy || h.State == HealthDegraded
}

// CheckHealth pings the engine and inspects its pool. An unreachable engine
// short-circuits; pool numbers would be meaningless.
func CheckHealth(ctx context.Context, eng Engine, cfg HealthConfig) Health {
	h := Health{Engine: eng.Name(), State: HealthHealthy}

	start := time.Now()
	if err := eng.Ping(ctx); err != nil {
		h.State = HealthUnreachable
		h.Messages = append(h.Messages, fmt.Sprintf("ping failed: %v", err))
		return h
	}
	h.PingLatency = time.Since(start)

	if cfg.LatencyThreshold > 0 && h.PingLatency > cfg.LatencyThreshold {
		h.State = HealthDegraded
		h.Messages = append(h.Messages, fmt.Sprintf("ping latency %v exceeds threshold %v",
			h.PingLatency.Round(time.Millisecond), cfg.LatencyThreshold))
	}

	h.Pool = eng.PoolStats()
	if h.Pool.Max > 0 {
		usagePct := (h.Pool.InUse * 100) / h.Pool.Max
		switch {
		case h.Pool.InUse >= h.Pool.Max:
			h.State = HealthExhausted
			h.Messages = append(h.Messages, fmt.Sprintf("connection pool exhausted: %d/%d in use",
				h.Pool.InUse, h.Pool.Max))
		case cfg.PoolWarnPct > 0 && usagePct >= cfg.PoolWarnPct:
			if h.State == HealthHealthy {
				h.State = HealthDegraded
			}
			h.Messages = append(h.Messages, fmt.Sprintf("connection pool at %d%% usage", usagePct))
		}
	}

	return h
}
