package fakes

import (
	"sync"

	"github.com/zalando/go-keyring"
)

// FakeKeyring is an in-memory stand-in for the OS keyring. Missing items
// return keyring.ErrNotFound, the same sentinel the real backend uses.
type FakeKeyring struct {
	mu    sync.Mutex
	items map[string]string

	// GetErr, SetErr and DeleteErr force failures when set.
	GetErr    error
	SetErr    error
	DeleteErr error

	GetCalls int
}

// NewFakeKeyring returns an empty fake keyring.
func NewFakeKeyring() *FakeKeyring {
	return &FakeKeyring{items: make(map[string]string)}
}

// Seed stores an item without going through Set, for test arrangement.
func (f *FakeKeyring) Seed(service, user, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[service+"\x00"+user] = value
}

func (f *FakeKeyring) Get(service, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	if f.GetErr != nil {
		return "", f.GetErr
	}
	v, ok := f.items[service+"\x00"+user]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (f *FakeKeyring) Set(service, user, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	f.items[service+"\x00"+user] = value
	return nil
}

func (f *FakeKeyring) Delete(service, user string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.items[service+"\x00"+user]; !ok {
		return keyring.ErrNotFound
	}
	delete(f.items, service+"\x00"+user)
	return nil
}
