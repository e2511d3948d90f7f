package ghprofile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultCacheTTL = 1 * time.Minute

// Cache is an in-memory keyed store with per-entry TTLs and a bounded entry
// count. Expiry is lazy: expired entries are treated as absent on read, and
// no background sweep runs. When the entry count exceeds the maximum the
// oldest-inserted entry is evicted first.
//
// Cached data is never authoritative; losing the cache only costs extra
// upstream calls.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[V]
	order   []string

	maxEntries int
	defaultTTL time.Duration

	group singleflight.Group
	now   func() time.Time
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewCache creates a cache holding at most maxEntries values. Entries stored
// without an explicit TTL use defaultTTL; a TTL never means "no expiry".
func NewCache[V any](maxEntries int, defaultTTL time.Duration) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = defaultCacheSize
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultCacheTTL
	}
	return &Cache[V]{
		entries:    make(map[string]*cacheEntry[V]),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the value stored under key, if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

func (c *Cache[V]) get(key string) (V, bool) {
	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		c.remove(key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key and returns it. A ttl of zero or less falls back
// to the cache's default TTL. Eviction runs after the insert, so a fresh
// write is never evicted by its own insertion.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) V {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = &cacheEntry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	for len(c.entries) > c.maxEntries {
		c.remove(c.order[0])
	}
	return value
}

// Has reports whether key holds an unexpired value.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key and reports whether an entry was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	c.remove(key)
	return true
}

// Clear drops all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry[V])
	c.order = nil
}

// Len returns the number of stored entries, counting entries that have
// expired but not yet been read.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Remember returns the cached value for key, or invokes compute and caches
// its result. Concurrent callers for the same key share a single in-flight
// computation rather than issuing duplicate upstream calls. A failed
// computation stores nothing, so the next call retries cleanly.
func (c *Cache[V]) Remember(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// Double-check after winning the flight: a concurrent caller may
		// have populated the entry between our miss and here.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return c.Set(key, v, ttl), nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// remove must be called with c.mu held.
func (c *Cache[V]) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
