// Package auth manages the lifecycle of short-lived database credentials
// minted by a workspace control plane.
//
// Managed Postgres-compatible services do not hand out long-lived passwords:
// clients authenticate with bearer tokens that expire after roughly an hour.
// A connection pool, however, lives much longer than that and opens new
// physical connections whenever it grows or recycles. This package sits
// between the two: it keeps one valid credential on hand at all times and
// hands the pool an up-to-date parameter snapshot whenever a new connection
// must be built.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                 Connection Pool / Engine                    │
//	│                  (internal/engine)                          │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │ ConnectionParams()
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                       Manager                               │
//	│                     (pkg/auth)                 ◄────────────┤
//	│   parameter cache · staleness net · rotation loop           │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │ Mint()
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                  CredentialSource                           │
//	│               (internal/workspace)                          │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │ HTTPS
//	                 workspace control plane
//
// # Rotation Model
//
// Four time windows cooperate, each strictly inside the next:
//
//   - Parameter cache (default 5m): repeated ConnectionParams calls between
//     pool checkouts are served from a cached snapshot without touching any
//     lock-protected mint path.
//   - Staleness net (default 45m): if a caller misses the cache and the
//     underlying credential is older than this, the call remints
//     synchronously before returning. This only matters when the background
//     loop has stalled; it is the last line of defense before the database
//     would start rejecting the token.
//   - Rotation interval (default 50m): a background goroutine force-remints
//     on this period regardless of consumer activity, so long-lived pools
//     never present an expired credential.
//   - Server validity (~60m): imposed by the control plane. The defaults
//     leave a ten-minute margin for clock skew and network latency.
//
// A failed background rotation is logged and retried at the next interval;
// consumers keep using the last good snapshot. Only initialization and the
// staleness net surface mint failures to callers.
//
// # Usage
//
//	source, err := workspace.NewCredentialSource(ctx, client, workspace.CredentialSourceConfig{
//	    Instance: "benchmark-instance",
//	    Database: "databricks_postgres",
//	})
//	if err != nil {
//	    return err // *auth.InitError
//	}
//
//	mgr, err := auth.NewManager(ctx, source, auth.Options{})
//	if err != nil {
//	    return err
//	}
//	defer mgr.Close()
//
//	mgr.StartRotation(ctx)
//
//	params, err := mgr.ConnectionParams(ctx)
//	// params.Host, params.User, params.Password ...
//
// Managers are plain values: several can coexist in one process (one per
// instance under test, one per test case) with no shared state between them.
package auth
