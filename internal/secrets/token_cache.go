package secrets

import (
	"sync"
	"time"
)

// tokenCache holds a short-lived authentication token in memory. Tokens
// are never persisted.
type tokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// Get returns the cached token if it has not expired.
func (c *tokenCache) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" || time.Now().After(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Set stores a token. A small buffer is shaved off the TTL so the token
// is refreshed before the backend rejects it.
func (c *tokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buffer := 5 * time.Second
	if ttl > buffer {
		ttl -= buffer
	}
	c.token = token
	c.expiresAt = time.Now().Add(ttl)
}

// Clear drops the cached token.
func (c *tokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiresAt = time.Time{}
}
