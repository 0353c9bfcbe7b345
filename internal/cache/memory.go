package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-memory TTL cache of typed values
type MemoryCache[T any] struct {
	cache *gocache.Cache

	mu  sync.Mutex
	gen uint64 // bumped by Delete and Clear
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache[T any](defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache[T] {
	return &MemoryCache[T]{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache[T]) Get(key string) (T, bool) {
	if val, found := c.cache.Get(key); found {
		if typed, ok := val.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// Set stores a value with the given TTL (0 uses the default TTL)
func (c *MemoryCache[T]) Set(key string, value T, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, ttl)
}

// Delete removes a value from the cache
func (c *MemoryCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Delete(key)
}

// Clear removes all values from the cache
func (c *MemoryCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Flush()
}

// GetOrLoad returns the cached value for key, calling load and caching its
// result on a miss. Errors are returned and never cached. A result is not
// cached if Delete or Clear ran while load was in flight.
func (c *MemoryCache[T]) GetOrLoad(key string, load func() (T, error)) (T, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	val, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.cache.Set(key, val, gocache.DefaultExpiration)
	}
	return val, nil
}
