package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/systmms/lakebench/internal/logging"
)

// Endpoint is the static half of a connection target: everything about the
// database that does not change when the credential rotates.
type Endpoint struct {
	Host     string
	Port     int
	Database string
	SSLMode  string
}

// Credential is one short-lived database credential as minted by the
// control plane. Subject is the database principal the token authenticates
// as; ExpiresAt is the server-side validity bound (zero when the control
// plane did not report one).
type Credential struct {
	Token     logging.Secret
	Subject   string
	ExpiresAt time.Time
}

// CredentialSource mints credentials for one database instance.
// Implementations must be safe for concurrent use; the Manager serializes
// Mint calls itself but Endpoint may be read at any time.
type CredentialSource interface {
	// Endpoint describes the instance the source mints for.
	Endpoint() Endpoint

	// Mint requests a fresh credential. Failures are returned as
	// *MintError and are never retried internally; retry policy belongs
	// to the caller.
	Mint(ctx context.Context) (Credential, error)
}

// ConnectionParameters is an immutable snapshot of everything a pool needs
// to open a physical connection. A refresh produces a new value; snapshots
// already handed out are never mutated, and stay usable until the
// credential inside them is revoked server-side.
type ConnectionParameters struct {
	Host     string
	Port     int
	Database string
	User     string
	Password logging.Secret
	SSLMode  string
}

// DSN renders the snapshot as a postgres:// URL for database/sql drivers.
// The credential is embedded in clear; never log the result.
func (p ConnectionParameters) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, string(p.Password)),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	q := url.Values{}
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
