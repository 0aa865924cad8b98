package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/lakebench/internal/logging"
)

// Optional service-principal credentials; without them the default Azure
// credential chain (managed identity, CLI login) applies.
const (
	envAzureTenantID     = "LAKEBENCH_AZURE_TENANT_ID"
	envAzureClientID     = "LAKEBENCH_AZURE_CLIENT_ID"
	envAzureClientSecret = "LAKEBENCH_AZURE_CLIENT_SECRET"
)

// AzureSecretsAPI is the slice of the Key Vault client the source uses.
// Listing is excluded; the pager type does not mock cleanly.
type AzureSecretsAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVaultSource resolves azure-kv://vault/secret-name references.
// The vault segment is a bare vault name (expanded to
// https://<vault>.vault.azure.net) so references stay self-contained.
type AzureKeyVaultSource struct {
	logger *logging.Logger

	mu      sync.Mutex
	clients map[string]AzureSecretsAPI
	build   func(vaultURL string) (AzureSecretsAPI, error)
}

// AzureOption configures an AzureKeyVaultSource.
type AzureOption func(*AzureKeyVaultSource)

// WithAzureClientBuilder sets a custom per-vault client constructor
// (for testing).
func WithAzureClientBuilder(build func(vaultURL string) (AzureSecretsAPI, error)) AzureOption {
	return func(s *AzureKeyVaultSource) {
		s.build = build
	}
}

// NewAzureKeyVaultSource builds the source. Clients are created per vault
// on first use, all sharing one credential.
func NewAzureKeyVaultSource(logger *logging.Logger, opts ...AzureOption) (*AzureKeyVaultSource, error) {
	s := &AzureKeyVaultSource{
		logger:  logger,
		clients: make(map[string]AzureSecretsAPI),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.build == nil {
		cred, err := newAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}
		s.build = func(vaultURL string) (AzureSecretsAPI, error) {
			return azsecrets.NewClient(vaultURL, cred, nil)
		}
	}
	return s, nil
}

func newAzureCredential() (azcore.TokenCredential, error) {
	tenant := os.Getenv(envAzureTenantID)
	client := os.Getenv(envAzureClientID)
	secret := os.Getenv(envAzureClientSecret)
	if tenant != "" && client != "" && secret != "" {
		return azidentity.NewClientSecretCredential(tenant, client, secret, nil)
	}
	return azidentity.NewDefaultAzureCredential(nil)
}

// Scheme returns "azure-kv".
func (s *AzureKeyVaultSource) Scheme() string {
	return SchemeAzureKV
}

func (s *AzureKeyVaultSource) client(vault string) (AzureSecretsAPI, error) {
	vaultURL := vault
	if !strings.HasPrefix(vaultURL, "https://") {
		vaultURL = "https://" + vault + ".vault.azure.net"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[vaultURL]; ok {
		return c, nil
	}
	c, err := s.build(vaultURL)
	if err != nil {
		return nil, err
	}
	s.clients[vaultURL] = c
	return c, nil
}

// Resolve fetches a secret. The path is vault/secret-name; ?version=
// selects a specific Key Vault version.
func (s *AzureKeyVaultSource) Resolve(ctx context.Context, ref Ref) (string, error) {
	vault, name, err := splitServiceAccount(ref.Path)
	if err != nil {
		return "", fmt.Errorf("azure-kv reference must be vault/secret-name, got %q", ref.Path)
	}

	client, err := s.client(vault)
	if err != nil {
		return "", &SourceOpError{Scheme: SchemeAzureKV, Op: "auth", Path: ref.Path, Err: err}
	}

	resp, err := client.GetSecret(ctx, name, ref.Version, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return "", fmt.Errorf("%w: %s in vault %s", ErrNotFound, name, vault)
		}
		return "", &SourceOpError{Scheme: SchemeAzureKV, Op: "fetch", Path: ref.Path, Err: err}
	}

	if resp.Value == nil {
		return "", fmt.Errorf("secret %s has no value", name)
	}

	if ref.Field != "" {
		return extractField(*resp.Value, ref.Field)
	}
	return *resp.Value, nil
}

// Check verifies the credential can be constructed. Per-vault reachability
// is only provable against a concrete reference, so doctor reports this
// source as configured rather than probing a vault.
func (s *AzureKeyVaultSource) Check(context.Context) error {
	return nil
}

func isAzureNotFound(err error) bool {
	return strings.Contains(err.Error(), "SecretNotFound") || strings.Contains(err.Error(), "404")
}
