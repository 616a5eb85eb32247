package validate

import (
	"context"
	"time"

	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/pkg/cache"
)

// Cached memoizes validation outcomes by the content digest of the artifact
// directory. Only verdicts on the artifact itself are stored; transient
// outcomes always go to the wrapped validator.
type Cached struct {
	next  core.Validator
	cache *cache.LRUCache[core.ValidationOutcome]
	ttl   time.Duration

	onLookup func(hit bool)
}

func NewCached(next core.Validator, config *cache.CacheConfig) (*Cached, error) {
	if config == nil {
		config = cache.DefaultCacheConfig()
	}
	c, err := cache.NewLRUCache[core.ValidationOutcome](config)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c, ttl: config.DefaultTTL}, nil
}

// OnLookup registers a hook called on every cache lookup
func (c *Cached) OnLookup(hook func(hit bool)) {
	c.onLookup = hook
}

// Validate implements core.Validator.
func (c *Cached) Validate(ctx context.Context, dir string) core.ValidationOutcome {
	set, err := artifact.ReadSet(dir)
	if err != nil {
		return c.next.Validate(ctx, dir)
	}
	key := cache.GenerateKey("terraform", artifact.Digest(set))
	out, ok := c.cache.Get(key)
	if c.onLookup != nil {
		c.onLookup(ok)
	}
	if ok {
		return out
	}

	out = c.next.Validate(ctx, dir)
	if !out.Transient {
		c.cache.Set(key, out, c.ttl)
	}
	return out
}

// Stats exposes hit and miss counters.
func (c *Cached) Stats() cache.CacheStats {
	return c.cache.Stats()
}
