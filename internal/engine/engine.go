// Package engine hosts the database engines the benchmark drives: a pgxpool
// engine wired to the credential rotation manager, conventional database/sql
// engines for comparison runs, and the pre-flight health checks.
package engine

import (
	"context"
	"strconv"
	"time"
)

// PoolStats is a driver-neutral snapshot of a connection pool.
type PoolStats struct {
	Max   int `json:"max"`
	Open  int `json:"open"`
	InUse int `json:"in_use"`
	Idle  int `json:"idle"`
}

// Engine is one database under benchmark.
type Engine interface {
	// Name identifies the engine in reports and metrics.
	Name() string
	// Ping checks liveness.
	Ping(ctx context.Context) error
	// Exec runs one query, drains the rows, and discards them.
	Exec(ctx context.Context, query string, args ...interface{}) error
	// SleepQuery returns this dialect's server-side sleep statement.
	SleepQuery(d time.Duration) string
	// PoolStats snapshots the connection pool.
	PoolStats() PoolStats
	// Close releases the pool.
	Close() error
}

// PostgresSleep renders the Postgres server-side sleep call.
func PostgresSleep(d time.Duration) string {
	return "SELECT pg_sleep(" + sleepSeconds(d) + ")"
}

// MySQLSleep renders the MySQL server-side sleep call.
func MySQLSleep(d time.Duration) string {
	return "SELECT SLEEP(" + sleepSeconds(d) + ")"
}

func sleepSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
