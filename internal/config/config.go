package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	lberrors "github.com/systmms/lakebench/internal/errors"
	"github.com/systmms/lakebench/internal/logging"
)

// Environment variable names. Every secret-bearing value may hold a secret
// reference (scheme://path) instead of a literal; see internal/secrets.
const (
	EnvWorkspaceHost  = "LAKEBENCH_WORKSPACE_HOST"
	EnvWorkspaceToken = "LAKEBENCH_WORKSPACE_TOKEN"
	EnvInstance       = "LAKEBENCH_INSTANCE"

	EnvDatabase  = "LAKEBENCH_DATABASE"
	EnvPort      = "LAKEBENCH_PORT"
	EnvSSLMode   = "LAKEBENCH_SSLMODE"
	EnvPrincipal = "LAKEBENCH_PRINCIPAL"

	EnvPoolSize        = "LAKEBENCH_POOL_SIZE"
	EnvPoolMaxOverflow = "LAKEBENCH_POOL_MAX_OVERFLOW"
	EnvPoolTimeout     = "LAKEBENCH_POOL_TIMEOUT"
	EnvPoolRecycle     = "LAKEBENCH_POOL_RECYCLE"

	EnvCacheTTL         = "LAKEBENCH_CACHE_TTL"
	EnvCredentialMaxAge = "LAKEBENCH_CREDENTIAL_MAX_AGE"
	EnvRotationInterval = "LAKEBENCH_ROTATION_INTERVAL"

	EnvHTTPTimeout = "LAKEBENCH_HTTP_TIMEOUT"

	EnvPostgresDSN = "LAKEBENCH_POSTGRES_DSN"
	EnvMySQLDSN    = "LAKEBENCH_MYSQL_DSN"
)

// Config is the environment-derived runtime configuration. Values are read
// once at startup; the loader never mutates the process environment.
type Config struct {
	WorkspaceHost  string
	WorkspaceToken logging.Secret
	Instance       string

	Database  string
	Port      int
	SSLMode   string
	Principal string

	PoolSize        int
	PoolMaxOverflow int
	PoolTimeout     time.Duration
	PoolRecycle     time.Duration

	CacheTTL         time.Duration
	CredentialMaxAge time.Duration
	RotationInterval time.Duration

	HTTPTimeout time.Duration

	PostgresDSN logging.Secret
	MySQLDSN    logging.Secret
}

// Resolver expands secret references embedded in configuration values.
// Literal values pass through unchanged.
type Resolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// FromEnv loads the configuration from the process environment. Mandatory
// settings are checked first and reported together: a host with three unset
// variables gets one error naming all three, and no network call is made.
// If resolver is non-nil, secret-bearing values are expanded through it
// after the presence check.
func FromEnv(ctx context.Context, resolver Resolver) (Config, error) {
	var missing []string
	for _, name := range []string{EnvWorkspaceHost, EnvWorkspaceToken, EnvInstance} {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Config{}, lberrors.ConfigError{
			MissingFields: missing,
			Suggestion:    "Export the listed variables (see 'lakebench doctor' for the full configuration surface)",
		}
	}

	cfg := Config{
		WorkspaceHost: os.Getenv(EnvWorkspaceHost),
		Instance:      os.Getenv(EnvInstance),
		Database:      getenvDefault(EnvDatabase, "postgres"),
		SSLMode:       getenvDefault(EnvSSLMode, "require"),
		Principal:     os.Getenv(EnvPrincipal),
	}

	var err error
	if cfg.Port, err = parseInt(EnvPort, 5432, 1, 65535); err != nil {
		return Config{}, err
	}
	if cfg.PoolSize, err = parseInt(EnvPoolSize, 20, 1, 10000); err != nil {
		return Config{}, err
	}
	if cfg.PoolMaxOverflow, err = parseInt(EnvPoolMaxOverflow, 30, 0, 10000); err != nil {
		return Config{}, err
	}
	if cfg.PoolTimeout, err = parseDuration(EnvPoolTimeout, 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PoolRecycle, err = parseDuration(EnvPoolRecycle, 50*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = parseDuration(EnvCacheTTL, 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CredentialMaxAge, err = parseDuration(EnvCredentialMaxAge, 45*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RotationInterval, err = parseDuration(EnvRotationInterval, 50*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = parseDuration(EnvHTTPTimeout, 30*time.Second); err != nil {
		return Config{}, err
	}

	switch cfg.SSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return Config{}, lberrors.ConfigError{
			Field:      EnvSSLMode,
			Value:      cfg.SSLMode,
			Message:    "unsupported TLS mode",
			Suggestion: "Use one of: disable, require, verify-ca, verify-full",
		}
	}

	// The parameter cache must expire before the credential itself is
	// considered stale, otherwise the staleness safety net can never fire.
	if cfg.CacheTTL >= cfg.CredentialMaxAge {
		return Config{}, lberrors.ConfigError{
			Field:      EnvCacheTTL,
			Value:      cfg.CacheTTL.String(),
			Message:    fmt.Sprintf("cache TTL must be shorter than the credential max age (%s)", cfg.CredentialMaxAge),
			Suggestion: "Lower " + EnvCacheTTL + " or raise " + EnvCredentialMaxAge,
		}
	}

	token := os.Getenv(EnvWorkspaceToken)
	pgDSN := os.Getenv(EnvPostgresDSN)
	myDSN := os.Getenv(EnvMySQLDSN)
	if resolver != nil {
		if token, err = resolveValue(ctx, resolver, EnvWorkspaceToken, token); err != nil {
			return Config{}, err
		}
		if pgDSN, err = resolveValue(ctx, resolver, EnvPostgresDSN, pgDSN); err != nil {
			return Config{}, err
		}
		if myDSN, err = resolveValue(ctx, resolver, EnvMySQLDSN, myDSN); err != nil {
			return Config{}, err
		}
	}
	cfg.WorkspaceToken = logging.Secret(token)
	cfg.PostgresDSN = logging.Secret(pgDSN)
	cfg.MySQLDSN = logging.Secret(myDSN)

	return cfg, nil
}

func resolveValue(ctx context.Context, resolver Resolver, name, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	resolved, err := resolver.Resolve(ctx, value)
	if err != nil {
		return "", lberrors.UserError{
			Message:    fmt.Sprintf("Failed to resolve secret reference in %s", name),
			Details:    err.Error(),
			Suggestion: "Check the reference syntax (scheme://path#field) and source credentials",
			Err:        err,
		}
	}
	return resolved, nil
}

func getenvDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func parseInt(name string, def, min, max int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, lberrors.ConfigError{
			Field:      name,
			Value:      raw,
			Message:    fmt.Sprintf("must be an integer between %d and %d", min, max),
			Suggestion: fmt.Sprintf("Unset %s to use the default (%d)", name, def),
		}
	}
	return n, nil
}

// parseDuration accepts Go duration syntax ("45m", "30s") or a bare integer
// number of seconds ("3000"), the form older deployments exported.
func parseDuration(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d <= 0 {
			return 0, durationError(name, raw, def)
		}
		return d, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, durationError(name, raw, def)
}

func durationError(name, raw string, def time.Duration) error {
	return lberrors.ConfigError{
		Field:      name,
		Value:      raw,
		Message:    "must be a positive duration",
		Suggestion: fmt.Sprintf("Use Go syntax ('5m', '30s') or integer seconds; default is %s", def),
	}
}
