package limiter

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/snow-ghost/skilltune/pkg/registry"
)

// avgTokensPerRequest converts a TPM budget into requests; a four-file
// generation with its skill prompt is in this range.
const avgTokensPerRequest = 4000.0

// RateLimiter manages rate limiting for models
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// RequestsPerMinute returns the more restrictive of MaxRPM and MaxTPM
// expressed in requests. Zero means unlimited.
func RequestsPerMinute(config registry.ModelConfig) float64 {
	rpm := float64(config.MaxRPM)
	tpmAsRPM := float64(config.MaxTPM) / avgTokensPerRequest

	switch {
	case rpm > 0 && tpmAsRPM > 0:
		return math.Min(rpm, tpmAsRPM)
	case rpm > 0:
		return rpm
	default:
		return tpmAsRPM
	}
}

// GetLimiter returns or creates a rate limiter for a model
func (rl *RateLimiter) GetLimiter(config registry.ModelConfig) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[config.ID]; exists {
		return limiter
	}

	var limiter *rate.Limiter
	if limit := RequestsPerMinute(config); limit > 0 {
		burst := int(limit / 10.0)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(limit/60.0), burst)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	rl.limiters[config.ID] = limiter
	return limiter
}

// Wait waits for the rate limiter to allow the request
func (rl *RateLimiter) Wait(ctx context.Context, config registry.ModelConfig) error {
	if err := rl.GetLimiter(config).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// Allow checks if the request is allowed without waiting
func (rl *RateLimiter) Allow(config registry.ModelConfig) bool {
	return rl.GetLimiter(config).Allow()
}

// Reset resets the rate limiter for a model
func (rl *RateLimiter) Reset(modelID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, modelID)
}
