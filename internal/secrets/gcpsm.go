package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/lakebench/internal/logging"
)

const (
	envGCPProject         = "LAKEBENCH_GCP_PROJECT"
	envGCPCredentialsFile = "LAKEBENCH_GCP_CREDENTIALS_FILE"
	envGCPImpersonate     = "LAKEBENCH_GCP_IMPERSONATE"
)

// GCPSecretManagerAPI is the slice of the Secret Manager client the source
// uses. The SDK client is wrapped rather than used directly so that tests
// can substitute an in-process fake.
type GCPSecretManagerAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator
}

// SecretIterator walks a secret listing.
type SecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// sdkGCPClient adapts the concrete SDK client to GCPSecretManagerAPI.
type sdkGCPClient struct {
	client *secretmanager.Client
}

func (c sdkGCPClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return c.client.AccessSecretVersion(ctx, req)
}

func (c sdkGCPClient) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator {
	return c.client.ListSecrets(ctx, req)
}

// GCPSource resolves gcp-sm://project/secret-name references (or full
// projects/P/secrets/S[/versions/V] resource names). Default version is
// "latest".
type GCPSource struct {
	client    GCPSecretManagerAPI
	logger    *logging.Logger
	projectID string
}

// GCPOption configures a GCPSource.
type GCPOption func(*GCPSource)

// WithGCPClient sets a custom client (for testing).
func WithGCPClient(client GCPSecretManagerAPI) GCPOption {
	return func(s *GCPSource) {
		s.client = client
	}
}

// NewGCPSource builds the source. Authentication follows application
// default credentials unless LAKEBENCH_GCP_CREDENTIALS_FILE or
// LAKEBENCH_GCP_IMPERSONATE narrows it.
func NewGCPSource(logger *logging.Logger, opts ...GCPOption) (*GCPSource, error) {
	s := &GCPSource{
		logger:    logger,
		projectID: gcpProjectID(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := newGCPClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
		}
		s.client = sdkGCPClient{client: client}
	}
	return s, nil
}

func newGCPClient() (*secretmanager.Client, error) {
	ctx := context.Background()

	var clientOptions []option.ClientOption
	if keyPath := os.Getenv(envGCPCredentialsFile); keyPath != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(keyPath))
	}
	if target := os.Getenv(envGCPImpersonate); target != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: target,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = append(clientOptions, option.WithTokenSource(ts))
	}

	return secretmanager.NewClient(ctx, clientOptions...)
}

func gcpProjectID() string {
	for _, name := range []string{envGCPProject, "GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT"} {
		if id := os.Getenv(name); id != "" {
			return id
		}
	}
	return ""
}

// Scheme returns "gcp-sm".
func (s *GCPSource) Scheme() string {
	return SchemeGCPSM
}

// resourceName expands a reference path into a full version resource name.
func (s *GCPSource) resourceName(path, version string) (string, error) {
	if version == "" {
		version = "latest"
	}
	if strings.HasPrefix(path, "projects/") {
		if strings.Contains(path, "/versions/") {
			return path, nil
		}
		return path + "/versions/" + version, nil
	}

	project, name, err := splitServiceAccount(path)
	if err != nil {
		project = s.projectID
		name = path
	}
	if project == "" {
		return "", fmt.Errorf("gcp-sm reference %q needs a project (use project/secret-name or set %s)", path, envGCPProject)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, name, version), nil
}

// Resolve fetches a secret version's payload.
func (s *GCPSource) Resolve(ctx context.Context, ref Ref) (string, error) {
	name, err := s.resourceName(ref.Path, ref.Version)
	if err != nil {
		return "", err
	}

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", &SourceOpError{Scheme: SchemeGCPSM, Op: "fetch", Path: ref.Path, Err: err}
	}

	if result.Payload == nil || result.Payload.Data == nil {
		return "", fmt.Errorf("secret %s has no payload", name)
	}

	value := string(result.Payload.Data)
	if ref.Field != "" {
		return extractField(value, ref.Field)
	}
	return value, nil
}

// Check lists one secret in the configured project.
func (s *GCPSource) Check(ctx context.Context) error {
	if s.projectID == "" {
		return fmt.Errorf("no GCP project configured (set %s)", envGCPProject)
	}
	iter := s.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent:   "projects/" + s.projectID,
		PageSize: 1,
	})
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return err
	}
	return nil
}
