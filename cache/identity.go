// Package cache memoises API results per authenticated identity.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jrsteele09/qeem-client/metrics"
)

// Identity is an expirable LRU whose entries belong to exactly one identity.
// Entries written for one user are never visible to another; switching owner
// purges everything.
type Identity struct {
	mu    sync.Mutex
	owner string
	lru   *expirable.LRU[string, any]
}

// New creates a cache holding up to size entries for ttl each
func New(size int, ttl time.Duration) *Identity {
	return &Identity{
		lru: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

func entryKey(owner, key string) string {
	return owner + "\x00" + key
}

// Get returns the entry for key if it was stored for owner.
func (c *Identity) Get(owner, key string) (any, bool) {
	if owner == "" {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner != c.owner {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	v, ok := c.lru.Get(entryKey(owner, key))
	if ok {
		metrics.CacheHits.Inc()
	} else {
		metrics.CacheMisses.Inc()
	}
	return v, ok
}

// Set stores value for owner. Anonymous values are not cached.
func (c *Identity) Set(owner, key string, value any) {
	if owner == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner != c.owner {
		c.purgeLocked()
		c.owner = owner
	}
	c.lru.Add(entryKey(owner, key), value)
}

// Remove drops a single entry.
func (c *Identity) Remove(owner, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(entryKey(owner, key))
}

// Len returns the number of live entries.
func (c *Identity) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Reset purges every entry and forgets the owner.
func (c *Identity) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
	c.owner = ""
}

// IdentityChanged is the session identity listener: any change of identity,
// including logout and expiry, purges the cache.
func (c *Identity) IdentityChanged(previous, current string) {
	if previous == current {
		return
	}
	c.Reset()
}

func (c *Identity) purgeLocked() {
	if c.lru.Len() > 0 {
		metrics.CacheResets.Inc()
	}
	c.lru.Purge()
}

// GetAs is a typed Get.
func GetAs[T any](c *Identity, owner, key string) (T, bool) {
	var zero T
	v, ok := c.Get(owner, key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
