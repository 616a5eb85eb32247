package limiter

import (
	"context"
	"fmt"

	"github.com/snow-ghost/skilltune/pkg/registry"
)

// ProtectionManager integrates rate limiting, retries, and circuit breaker
type ProtectionManager struct {
	rateLimiter    *RateLimiter
	retryManager   *RetryManager
	circuitBreaker *CircuitBreakerManager
}

// Config groups the protection settings
type Config struct {
	Retry          *RetryConfig          `yaml:"retry"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// NewProtectionManager creates a new protection manager
func NewProtectionManager(config Config) *ProtectionManager {
	return &ProtectionManager{
		rateLimiter:    NewRateLimiter(),
		retryManager:   NewRetryManager(config.Retry),
		circuitBreaker: NewCircuitBreakerManager(config.CircuitBreaker),
	}
}

// Retries exposes the retry manager for hook registration
func (pm *ProtectionManager) Retries() *RetryManager { return pm.retryManager }

// Breakers exposes the circuit breakers for hook registration
func (pm *ProtectionManager) Breakers() *CircuitBreakerManager { return pm.circuitBreaker }

// Execute rate-limits, then runs fn with retries inside the model's breaker.
// The whole retry sequence counts as one breaker request.
func (pm *ProtectionManager) Execute(ctx context.Context, mc registry.ModelConfig, fn func(ctx context.Context) error) error {
	if err := pm.rateLimiter.Wait(ctx, mc); err != nil {
		return fmt.Errorf("rate limiting failed: %w", err)
	}

	return pm.circuitBreaker.Execute(mc, func() error {
		return pm.retryManager.Execute(ctx, fn)
	})
}

// ResetModel resets all protection mechanisms for a specific model
func (pm *ProtectionManager) ResetModel(modelID string) {
	pm.rateLimiter.Reset(modelID)
	pm.circuitBreaker.Reset(modelID)
}
