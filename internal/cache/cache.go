// Package cache provides a process-wide in-memory key/value store with
// per-entry TTL expiry, shared by all upstream source fetches.
package cache

import (
	"sync"
	"time"
)

// entry pairs a stored value with its expiry deadline.
type entry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a concurrency-safe in-memory cache with lazy expiry.
//
// Individual operations are serialized, but a Get miss followed by a Set is
// not atomic across callers: two concurrent requests for the same key may
// both fetch upstream. That duplicate work is acceptable; the second Set
// simply overwrites the first.
type TTLCache struct {
	mu   sync.Mutex
	data map[string]entry

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty TTLCache.
func New() *TTLCache {
	return &TTLCache{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

// Get returns the value stored under key, or false if the key is absent or
// expired. Expired entries are evicted on read. There is no sliding expiry:
// reading does not extend an entry's lifetime.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.data, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, overwriting any previous entry. The TTL is
// measured from the time of the call.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Delete removes key from the cache if present.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear removes all entries.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry)
}

// CleanupExpired removes every expired entry and returns how many were
// evicted. Intended for a periodic background sweep; Get already evicts
// lazily on read.
func (c *TTLCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of entries currently stored, expired or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
