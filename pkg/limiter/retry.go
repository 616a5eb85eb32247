package limiter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay       time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay        time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffFactor   float64       `json:"backoff_factor" yaml:"backoff_factor"`
	Jitter          bool          `json:"jitter" yaml:"jitter"`
	RetryableErrors []int         `json:"retryable_errors" yaml:"retryable_errors"`
}

// DefaultRetryConfig returns a default retry configuration.
// 529 is Anthropic's "overloaded" status.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        30 * time.Second,
		BackoffFactor:   2.0,
		Jitter:          true,
		RetryableErrors: []int{429, 500, 502, 503, 504, 529},
	}
}

// RetryHook observes a failed attempt that is about to be retried
type RetryHook func(attempt int, err error, delay time.Duration)

// RetryManager manages retry logic
type RetryManager struct {
	config  *RetryConfig
	onRetry RetryHook
}

// NewRetryManager creates a new retry manager
func NewRetryManager(config *RetryConfig) *RetryManager {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryManager{config: config}
}

// OnRetry registers a hook called before each backoff sleep
func (rm *RetryManager) OnRetry(hook RetryHook) {
	rm.onRetry = hook
}

// Execute runs fn until it succeeds, fails with a non-retryable error, or
// MaxRetries is exhausted.
func (rm *RetryManager) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= rm.config.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == rm.config.MaxRetries {
			break
		}
		if !rm.isRetryableError(err) {
			return err
		}

		delay := rm.calculateDelay(attempt)
		if rm.onRetry != nil {
			rm.onRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryableError checks if an error is retryable
func (rm *RetryManager) isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		for _, code := range rm.config.RetryableErrors {
			if httpErr.StatusCode == code {
				return true
			}
		}
		return false
	}

	// Connection resets and similar transport failures
	var netErr net.Error
	return errors.As(err, &netErr)
}

// calculateDelay calculates the delay for the given attempt
func (rm *RetryManager) calculateDelay(attempt int) time.Duration {
	delay := float64(rm.config.BaseDelay) * math.Pow(rm.config.BackoffFactor, float64(attempt))
	if delay > float64(rm.config.MaxDelay) {
		delay = float64(rm.config.MaxDelay)
	}
	if rm.config.Jitter {
		// ±25%
		jitter := rand.Float64()*0.5 - 0.25
		delay = delay * (1 + jitter)
	}
	return time.Duration(delay)
}

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, message, body string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Body:       body,
	}
}

// IsRetryableHTTPError checks if an HTTP status code is retryable under the default config
func IsRetryableHTTPError(statusCode int) bool {
	for _, code := range DefaultRetryConfig().RetryableErrors {
		if statusCode == code {
			return true
		}
	}
	return false
}
