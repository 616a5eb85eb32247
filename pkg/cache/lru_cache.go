package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache implements an LRU cache with TTL support.
// Expired entries are dropped lazily on read.
type LRUCache[V any] struct {
	cache  *lru.Cache[CacheKey, *CacheEntry[V]]
	config *CacheConfig
	stats  *CacheStats
	mu     sync.Mutex
}

// NewLRUCache creates a new LRU cache
func NewLRUCache[V any](config *CacheConfig) (*LRUCache[V], error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	cache, err := lru.New[CacheKey, *CacheEntry[V]](config.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &LRUCache[V]{
		cache:  cache,
		config: config,
		stats:  &CacheStats{MaxSize: config.MaxSize},
	}, nil
}

// Get retrieves a value from the cache
func (c *LRUCache[V]) Get(key CacheKey) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, exists := c.cache.Get(key)
	if !exists {
		c.stats.Misses++
		return zero, false
	}

	if entry.IsExpired() {
		c.cache.Remove(key)
		c.stats.Expirations++
		c.stats.Misses++
		return zero, false
	}

	entry.Touch()
	c.stats.Hits++
	return entry.Value, true
}

// Set stores a value in the cache
func (c *LRUCache[V]) Set(key CacheKey, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	now := time.Now()
	evicted := c.cache.Add(key, &CacheEntry[V]{
		Value:        value,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
	})
	if evicted {
		c.stats.Evictions++
	}
	c.stats.Size = c.cache.Len()
}

// Delete removes a value from the cache
func (c *LRUCache[V]) Delete(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(key)
	c.stats.Size = c.cache.Len()
}

// Clear removes all values from the cache
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Purge()
	c.stats.Size = 0
}

// Stats returns cache statistics
func (c *LRUCache[V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := *c.stats
	stats.Size = c.cache.Len()
	stats.CalculateHitRate()
	return stats
}

// Len returns the number of items in the cache
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cache.Len()
}
