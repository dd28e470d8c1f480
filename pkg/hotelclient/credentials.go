package hotelclient

import (
	"context"
	"sync"
	"time"
)

// credentialCache holds one provider auth token with its expiry. Concurrent
// refreshes may race; the last writer wins and every stored token is valid,
// so the race is harmless.
type credentialCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// get returns the cached token when it is still valid at the given instant.
func (c *credentialCache) get(now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !now.Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *credentialCache) set(token string, expiresAt time.Time) {
	c.mu.Lock()
	c.token = token
	c.expiresAt = expiresAt
	c.mu.Unlock()
}

// invalidate drops the cached token, forcing the next call to authenticate.
func (c *credentialCache) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// ensure returns a valid token, calling authenticate on a miss.
func (c *credentialCache) ensure(ctx context.Context, now time.Time, ttl time.Duration, authenticate func(ctx context.Context) (string, error)) (string, error) {
	if token, ok := c.get(now); ok {
		return token, nil
	}
	token, err := authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.set(token, now.Add(ttl))
	return token, nil
}
