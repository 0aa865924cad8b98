package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/systmms/lakebench/internal/logging"
	"github.com/systmms/lakebench/pkg/auth"
)

// API is the slice of the control-plane client the credential source needs.
// *Client satisfies it; tests substitute fakes.
type API interface {
	GetDatabaseInstance(ctx context.Context, name string) (*DatabaseInstance, error)
	GenerateCredential(ctx context.Context, requestID string, instanceNames []string) (*Credential, error)
	CurrentUser(ctx context.Context) (*User, error)
}

// CredentialSourceConfig locates the instance and fills in the connection
// details the control plane does not carry.
type CredentialSourceConfig struct {
	Instance string
	Database string
	Port     int
	SSLMode  string

	// Principal is the login role used when a minted token's subject cannot
	// be decoded. Empty means ask the control plane who the access token
	// belongs to at construction time.
	Principal string
}

// CredentialSource mints database credentials from the control plane. It
// implements auth.CredentialSource.
type CredentialSource struct {
	api      API
	logger   *logging.Logger
	instance string
	endpoint auth.Endpoint
	fallback string
}

// NewCredentialSource resolves the configured instance and prepares a mint
// path for it. A missing instance is reported as auth.ErrInstanceNotFound
// inside the returned InitError.
func NewCredentialSource(ctx context.Context, api API, cfg CredentialSourceConfig, logger *logging.Logger) (*CredentialSource, error) {
	if logger == nil {
		logger = logging.New(false, true)
	}

	inst, err := api.GetDatabaseInstance(ctx, cfg.Instance)
	if err != nil {
		if IsNotFound(err) {
			return nil, &auth.InitError{Err: fmt.Errorf("instance %q: %w", cfg.Instance, auth.ErrInstanceNotFound)}
		}
		return nil, &auth.InitError{Err: fmt.Errorf("resolving instance %q: %w", cfg.Instance, err)}
	}
	if inst.ReadWriteDNS == "" {
		return nil, &auth.InitError{Err: fmt.Errorf("instance %q has no endpoint yet (state %s)", cfg.Instance, inst.State)}
	}
	if inst.State != "" && inst.State != InstanceAvailable {
		logger.Warn("Instance %s is %s; connections may be refused until it is %s", inst.Name, inst.State, InstanceAvailable)
	}

	fallback := cfg.Principal
	if fallback == "" {
		user, err := api.CurrentUser(ctx)
		if err != nil {
			return nil, &auth.InitError{Err: fmt.Errorf("no fallback principal configured and the current-user lookup failed: %w", err)}
		}
		fallback = user.UserName
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	database := cfg.Database
	if database == "" {
		database = "postgres"
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	logger.Debug("Credential source ready: instance=%s host=%s database=%s", inst.Name, inst.ReadWriteDNS, database)

	return &CredentialSource{
		api:      api,
		logger:   logger,
		instance: inst.Name,
		endpoint: auth.Endpoint{
			Host:     inst.ReadWriteDNS,
			Port:     port,
			Database: database,
			SSLMode:  sslMode,
		},
		fallback: fallback,
	}, nil
}

// Endpoint returns the connection coordinates of the resolved instance.
func (s *CredentialSource) Endpoint() auth.Endpoint {
	return s.endpoint
}

// Mint asks the control plane for a fresh database token. Every call sends a
// new request ID, so a retried mint can never be served a deduplicated stale
// credential.
func (s *CredentialSource) Mint(ctx context.Context) (auth.Credential, error) {
	requestID := uuid.NewString()

	cred, err := s.api.GenerateCredential(ctx, requestID, []string{s.instance})
	if err != nil {
		return auth.Credential{}, &auth.MintError{Err: fmt.Errorf("instance %q: %w", s.instance, err)}
	}

	subject, err := tokenSubject(cred.Token)
	if err != nil {
		s.logger.Warn("Could not read the token subject, logging in as %s: %v", s.fallback, err)
		subject = s.fallback
	}

	return auth.Credential{
		Token:     logging.Secret(cred.Token),
		Subject:   subject,
		ExpiresAt: cred.ExpirationTime,
	}, nil
}

// tokenSubject pulls the subject claim out of a minted token without
// verifying the signature. The token just arrived over an authenticated TLS
// channel from the party that signed it, so verification here would add a
// key-distribution problem without adding trust.
func tokenSubject(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("token has no subject claim")
	}
	return subject, nil
}
