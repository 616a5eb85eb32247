package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// CacheKey represents a cache key
type CacheKey string

// CacheEntry represents a cached value
type CacheEntry[V any] struct {
	Value        V         `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	AccessCount  int       `json:"access_count"`
	LastAccessed time.Time `json:"last_accessed"`
}

// IsExpired checks if the cache entry is expired
func (e *CacheEntry[V]) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Touch updates the access time and count
func (e *CacheEntry[V]) Touch() {
	e.LastAccessed = time.Now()
	e.AccessCount++
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	MaxSize    int           `json:"max_size" yaml:"max_size"`       // Maximum number of entries
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"` // Default TTL for entries
}

// DefaultCacheConfig returns a default cache configuration
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		MaxSize:    512,
		DefaultTTL: time.Hour,
	}
}

// GenerateKey derives a key from a namespace (tool name) and content digests
func GenerateKey(namespace string, parts ...string) CacheKey {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return CacheKey(fmt.Sprintf("%s:%x", namespace, hash))
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	HitRate     float64 `json:"hit_rate"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
}

// CalculateHitRate calculates the hit rate
func (s *CacheStats) CalculateHitRate() {
	total := s.Hits + s.Misses
	if total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	} else {
		s.HitRate = 0.0
	}
}
