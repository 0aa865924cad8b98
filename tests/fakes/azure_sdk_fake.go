package fakes

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeAzureKeyVaultClient is an in-memory Key Vault for one vault URL.
type FakeAzureKeyVaultClient struct {
	// Secrets maps name (and name/version) to values.
	Secrets map[string]string
	Errors  map[string]error

	// GetSecretFunc overrides GetSecret when set.
	GetSecretFunc func(ctx context.Context, name, version string) (azsecrets.GetSecretResponse, error)

	// Calls records (name, version) pairs for assertions.
	Calls [][2]string
}

// NewFakeAzureKeyVaultClient creates an empty fake.
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		Secrets: make(map[string]string),
		Errors:  make(map[string]error),
	}
}

// AddSecret stores a current-version value for name.
func (f *FakeAzureKeyVaultClient) AddSecret(name, value string) {
	f.Secrets[name] = value
}

// AddSecretVersion stores a value for a specific version of name.
func (f *FakeAzureKeyVaultClient) AddSecretVersion(name, version, value string) {
	f.Secrets[name+"/"+version] = value
}

func (f *FakeAzureKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.Calls = append(f.Calls, [2]string{name, version})
	if f.GetSecretFunc != nil {
		return f.GetSecretFunc(ctx, name, version)
	}

	key := name
	if version != "" {
		key = name + "/" + version
	}
	if err, exists := f.Errors[key]; exists {
		return azsecrets.GetSecretResponse{}, err
	}

	value, exists := f.Secrets[key]
	if !exists {
		return azsecrets.GetSecretResponse{}, fmt.Errorf("SecretNotFound: a secret with name %s was not found in this key vault", name)
	}

	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{Value: &value},
	}, nil
}
