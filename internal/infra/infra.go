// Package infra provides shared infrastructure for the pipeline: an
// in-memory fetch cache, per-source rate limiting, HTTP helpers, and
// logger initialization.
package infra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// --- In-memory fetch cache ---

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL. Fetchers use it to avoid
// re-downloading a dataset within a run; the on-disk store handles
// persistence across runs.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

// NewCache creates a cache with the given default TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a value. Returns nil, false if not found or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Flush removes all entries.
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// --- Rate limiter ---

// NewRateLimiter returns a limiter allowing n requests per window. Upstream
// dataset hosts are shared academic infrastructure; fetchers wait on the
// limiter before every request.
func NewRateLimiter(n int, window time.Duration) *rate.Limiter {
	if n <= 0 {
		n = 1
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(n)), n)
}
