package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer stores a secret in an encrypted memguard enclave. The zero value is
// unusable; construct with NewBuffer or NewBufferFromString.
//
// memguard enclaves have no destroy primitive of their own (the ciphertext
// is safe to leave to the collector), so Destroy here just drops the enclave
// and fences off further use.
type Buffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewBuffer seals the given bytes into guarded memory. The input slice is
// copied; the caller should zero its own copy if it holds a secret.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewBufferFromString seals a secret string.
func NewBufferFromString(s string) *Buffer {
	return NewBuffer([]byte(s))
}

// WithBytes decrypts the secret, passes the plaintext to fn, and wipes the
// plaintext again before returning. The slice must not escape fn.
func (b *Buffer) WithBytes(fn func([]byte) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed || b.enclave == nil {
		return fn(nil)
	}

	locked, err := b.enclave.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Destroy fences the buffer off from further use. Idempotent; WithBytes on a
// destroyed buffer sees a nil slice.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
