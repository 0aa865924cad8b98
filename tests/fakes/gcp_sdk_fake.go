package fakes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/systmms/lakebench/internal/secrets"
)

// FakeGCPSecretManagerClient is an in-memory Secret Manager. Errors are
// real gRPC status errors so code-based handling is exercised.
type FakeGCPSecretManagerClient struct {
	// Versions maps full version resource names
	// (projects/P/secrets/S/versions/V) to payloads.
	Versions map[string][]byte
	// Secrets maps secret resource names (projects/P/secrets/S) to
	// creation times, for listing.
	Secrets map[string]*timestamppb.Timestamp
	Errors  map[string]error
}

// NewFakeGCPSecretManagerClient creates an empty fake.
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Versions: make(map[string][]byte),
		Secrets:  make(map[string]*timestamppb.Timestamp),
		Errors:   make(map[string]error),
	}
}

// AddSecretString registers a secret with a "latest" version.
func (f *FakeGCPSecretManagerClient) AddSecretString(project, name, value string) {
	secretName := fmt.Sprintf("projects/%s/secrets/%s", project, name)
	f.Secrets[secretName] = timestamppb.New(time.Now())
	f.Versions[secretName+"/versions/latest"] = []byte(value)
	f.Versions[secretName+"/versions/1"] = []byte(value)
}

// AddError makes lookups of a resource name fail with err.
func (f *FakeGCPSecretManagerClient) AddError(resourceName string, err error) {
	f.Errors[resourceName] = err
}

func (f *FakeGCPSecretManagerClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}

	data, exists := f.Versions[req.Name]
	if !exists {
		return nil, status.Errorf(codes.NotFound, "Secret version %s not found", req.Name)
	}

	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: data},
	}, nil
}

func (f *FakeGCPSecretManagerClient) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) secrets.SecretIterator {
	if err, exists := f.Errors[req.Parent]; exists {
		return &FakeSecretIterator{err: err}
	}

	prefix := req.Parent + "/secrets/"
	var secrets []*secretmanagerpb.Secret
	for name, created := range f.Secrets {
		if strings.HasPrefix(name, prefix) {
			secrets = append(secrets, &secretmanagerpb.Secret{
				Name:       name,
				CreateTime: created,
			})
		}
	}
	return &FakeSecretIterator{secrets: secrets}
}

// FakeSecretIterator yields a fixed slice of secrets.
type FakeSecretIterator struct {
	secrets []*secretmanagerpb.Secret
	index   int
	err     error
}

func (it *FakeSecretIterator) Next() (*secretmanagerpb.Secret, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.index >= len(it.secrets) {
		return nil, iterator.Done
	}
	secret := it.secrets[it.index]
	it.index++
	return secret, nil
}

// GCPPermissionDeniedError builds a realistic permission failure.
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}
