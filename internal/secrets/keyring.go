package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringAPI is the subset of OS keyring operations the source needs.
// Split out so tests can substitute an in-memory implementation.
type KeyringAPI interface {
	Get(service, user string) (string, error)
	Set(service, user, password string) error
	Delete(service, user string) error
}

type systemKeyring struct{}

func (systemKeyring) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}

func (systemKeyring) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}

func (systemKeyring) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// KeyringSource resolves keyring://service/account references against the
// OS keyring (macOS Keychain, Linux Secret Service, Windows Credential
// Manager). It also backs 'lakebench login', which stores the workspace
// token under lakebench/<host>.
type KeyringSource struct {
	api KeyringAPI
}

// NewKeyringSource returns a keyring source. A nil api selects the real
// OS keyring.
func NewKeyringSource(api KeyringAPI) *KeyringSource {
	if api == nil {
		api = systemKeyring{}
	}
	return &KeyringSource{api: api}
}

// Scheme returns "keyring".
func (s *KeyringSource) Scheme() string {
	return SchemeKeyring
}

func splitServiceAccount(path string) (service, account string, err error) {
	idx := strings.Index(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("keyring reference must be service/account, got %q", path)
	}
	return path[:idx], path[idx+1:], nil
}

// Resolve fetches the secret stored under service/account.
func (s *KeyringSource) Resolve(_ context.Context, ref Ref) (string, error) {
	service, account, err := splitServiceAccount(ref.Path)
	if err != nil {
		return "", err
	}

	value, err := s.api.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: no keyring item %s/%s", ErrNotFound, service, account)
		}
		return "", &SourceOpError{Scheme: SchemeKeyring, Op: "fetch", Path: ref.Path, Err: err}
	}

	if ref.Field != "" {
		return extractField(value, ref.Field)
	}
	return value, nil
}

// Store writes a secret under service/account.
func (s *KeyringSource) Store(service, account, value string) error {
	if err := s.api.Set(service, account, value); err != nil {
		return &SourceOpError{Scheme: SchemeKeyring, Op: "store", Path: service + "/" + account, Err: err}
	}
	return nil
}

// Remove deletes the item under service/account. Missing items are not
// an error.
func (s *KeyringSource) Remove(service, account string) error {
	err := s.api.Delete(service, account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return &SourceOpError{Scheme: SchemeKeyring, Op: "delete", Path: service + "/" + account, Err: err}
	}
	return nil
}

// Check probes the keyring with a throwaway read. ErrNotFound means the
// backend answered, which is all the probe needs.
func (s *KeyringSource) Check(context.Context) error {
	_, err := s.api.Get("lakebench", "doctor-probe")
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
