package fakes

import (
	"context"
	"fmt"
	"time"
)

// FakeAkeylessClient is a test double for the Akeyless SDK surface.
type FakeAkeylessClient struct {
	Token    string
	TokenTTL time.Duration
	Secrets  map[string]string

	AuthErr error
	GetErr  error
	ListErr error

	AuthCallCount int
	GetCallCount  int

	// LastVersion records the version pointer of the most recent
	// GetSecret call.
	LastVersion *int
}

// NewFakeAkeylessClient creates a fake with a valid token.
func NewFakeAkeylessClient() *FakeAkeylessClient {
	return &FakeAkeylessClient{
		Token:    "fake-akeyless-token",
		TokenTTL: 30 * time.Minute,
		Secrets:  make(map[string]string),
	}
}

// SetSecret stores a secret value under path.
func (f *FakeAkeylessClient) SetSecret(path, value string) {
	f.Secrets[path] = value
}

func (f *FakeAkeylessClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	f.AuthCallCount++
	if f.AuthErr != nil {
		return "", 0, f.AuthErr
	}
	return f.Token, f.TokenTTL, nil
}

func (f *FakeAkeylessClient) GetSecret(ctx context.Context, token, path string, version *int) (string, error) {
	f.GetCallCount++
	f.LastVersion = version
	if f.GetErr != nil {
		return "", f.GetErr
	}
	if token != f.Token {
		return "", fmt.Errorf("invalid token")
	}
	value, ok := f.Secrets[path]
	if !ok {
		return "", fmt.Errorf("itemNotFound: %s", path)
	}
	return value, nil
}

func (f *FakeAkeylessClient) ListItems(ctx context.Context, token, path string) ([]string, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	names := make([]string, 0, len(f.Secrets))
	for p := range f.Secrets {
		names = append(names, p)
	}
	return names, nil
}
