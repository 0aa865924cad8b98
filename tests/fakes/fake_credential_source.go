package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/systmms/lakebench/internal/logging"
	"github.com/systmms/lakebench/pkg/auth"
)

// FakeCredentialSource mints deterministic credentials: call N produces
// token-N for subject user-N, so tests can pair a snapshot's user and
// password fields and detect torn reads.
type FakeCredentialSource struct {
	Host     string
	Port     int
	Database string
	SSLMode  string

	// Validity sets ExpiresAt relative to mint time. Zero leaves
	// ExpiresAt zero.
	Validity time.Duration

	// Subject, when set, fixes the minted subject instead of user-N.
	Subject string

	mu      sync.Mutex
	mintErr error
	calls   int
}

// NewFakeCredentialSource returns a source for a plausible instance.
func NewFakeCredentialSource() *FakeCredentialSource {
	return &FakeCredentialSource{
		Host:     "instance-1234.database.example.com",
		Port:     5432,
		Database: "bench",
		SSLMode:  "require",
	}
}

func (f *FakeCredentialSource) Endpoint() auth.Endpoint {
	return auth.Endpoint{
		Host:     f.Host,
		Port:     f.Port,
		Database: f.Database,
		SSLMode:  f.SSLMode,
	}
}

func (f *FakeCredentialSource) Mint(ctx context.Context) (auth.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.mintErr != nil {
		return auth.Credential{}, f.mintErr
	}

	subject := f.Subject
	if subject == "" {
		subject = fmt.Sprintf("user-%d", f.calls)
	}
	cred := auth.Credential{
		Token:   logging.Secret(fmt.Sprintf("token-%d", f.calls)),
		Subject: subject,
	}
	if f.Validity > 0 {
		cred.ExpiresAt = time.Now().Add(f.Validity)
	}
	return cred, nil
}

// SetMintErr makes subsequent mints fail with err; nil restores success.
func (f *FakeCredentialSource) SetMintErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintErr = err
}

// Calls reports how many times Mint has been invoked.
func (f *FakeCredentialSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
