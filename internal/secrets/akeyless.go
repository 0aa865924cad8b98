package secrets

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/systmms/lakebench/internal/logging"
)

const (
	envAkeylessGateway    = "LAKEBENCH_AKEYLESS_GATEWAY"
	envAkeylessAccessID   = "LAKEBENCH_AKEYLESS_ACCESS_ID"
	envAkeylessAccessKey  = "LAKEBENCH_AKEYLESS_ACCESS_KEY"
	envAkeylessAccessType = "LAKEBENCH_AKEYLESS_ACCESS_TYPE"

	defaultAkeylessGateway = "https://api.akeyless.io"
)

// AkeylessAPI abstracts the Akeyless SDK for testing.
type AkeylessAPI interface {
	// Authenticate obtains an access token and its lifetime.
	Authenticate(ctx context.Context) (token string, ttl time.Duration, err error)

	// GetSecret retrieves a secret by path. A nil version means latest.
	GetSecret(ctx context.Context, token, path string, version *int) (string, error)

	// ListItems lists item names under a path (doctor probe).
	ListItems(ctx context.Context, token, path string) ([]string, error)
}

// AkeylessSource resolves akeyless:///path/to/secret[?version=N]
// references. Authentication tokens are cached in memory for their
// lifetime and re-minted on demand.
type AkeylessSource struct {
	client AkeylessAPI
	logger *logging.Logger
	tokens tokenCache
}

// AkeylessOption configures an AkeylessSource.
type AkeylessOption func(*AkeylessSource)

// WithAkeylessClient sets a custom client (for testing).
func WithAkeylessClient(client AkeylessAPI) AkeylessOption {
	return func(s *AkeylessSource) {
		s.client = client
	}
}

// NewAkeylessSource builds the source from LAKEBENCH_AKEYLESS_* settings.
func NewAkeylessSource(logger *logging.Logger, opts ...AkeylessOption) (*AkeylessSource, error) {
	s := &AkeylessSource{logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		gateway := os.Getenv(envAkeylessGateway)
		if gateway == "" {
			gateway = defaultAkeylessGateway
		}
		client, err := newAkeylessSDKClient(akeylessSettings{
			Gateway:    gateway,
			AccessID:   os.Getenv(envAkeylessAccessID),
			AccessKey:  os.Getenv(envAkeylessAccessKey),
			AccessType: os.Getenv(envAkeylessAccessType),
		})
		if err != nil {
			return nil, err
		}
		s.client = client
	}
	return s, nil
}

// Scheme returns "akeyless".
func (s *AkeylessSource) Scheme() string {
	return SchemeAkeyless
}

func (s *AkeylessSource) token(ctx context.Context) (string, error) {
	if token, ok := s.tokens.Get(); ok {
		return token, nil
	}

	token, ttl, err := s.client.Authenticate(ctx)
	if err != nil {
		return "", &SourceOpError{Scheme: SchemeAkeyless, Op: "auth", Err: err}
	}
	s.tokens.Set(token, ttl)
	return token, nil
}

// Resolve fetches a secret by path.
func (s *AkeylessSource) Resolve(ctx context.Context, ref Ref) (string, error) {
	path := ref.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var version *int
	if ref.Version != "" {
		n, err := strconv.Atoi(ref.Version)
		if err != nil {
			return "", fmt.Errorf("akeyless version must be an integer, got %q", ref.Version)
		}
		version = &n
	}

	token, err := s.token(ctx)
	if err != nil {
		return "", err
	}

	value, err := s.client.GetSecret(ctx, token, path, version)
	if err != nil {
		if isAkeylessNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", &SourceOpError{Scheme: SchemeAkeyless, Op: "fetch", Path: path, Err: err}
	}

	if ref.Field != "" {
		return extractField(value, ref.Field)
	}
	return value, nil
}

// Check authenticates and lists the root path.
func (s *AkeylessSource) Check(ctx context.Context) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	_, err = s.client.ListItems(ctx, token, "/")
	return err
}

func isAkeylessNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "not found") || strings.Contains(msg, "itemNotFound")
}
