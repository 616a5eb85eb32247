package limiter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/snow-ghost/skilltune/pkg/registry"
)

// ErrCircuitOpen is returned when a model's breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StateChangeHook observes breaker transitions
type StateChangeHook func(modelID string, from, to gobreaker.State)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests uint32        `json:"max_requests" yaml:"max_requests"`
	Interval    time.Duration `json:"interval" yaml:"interval"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	MinRequests uint32        `json:"min_requests" yaml:"min_requests"`
	FailureRate float64       `json:"failure_rate" yaml:"failure_rate"`
}

// DefaultCircuitBreakerConfig opens after at least 5 requests with a 50% failure rate
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		MinRequests: 5,
		FailureRate: 0.5,
	}
}

// CircuitBreakerManager keeps one breaker per model
type CircuitBreakerManager struct {
	config   *CircuitBreakerConfig
	breakers map[string]*gobreaker.CircuitBreaker
	onChange StateChangeHook
	mu       sync.Mutex
}

// NewCircuitBreakerManager creates a new circuit breaker manager
func NewCircuitBreakerManager(config *CircuitBreakerConfig) *CircuitBreakerManager {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	return &CircuitBreakerManager{
		config:   config,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// OnStateChange registers a hook for breaker transitions. Breakers created
// before the call do not see it.
func (cbm *CircuitBreakerManager) OnStateChange(hook StateChangeHook) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()
	cbm.onChange = hook
}

// GetBreaker returns or creates the breaker for a model
func (cbm *CircuitBreakerManager) GetBreaker(mc registry.ModelConfig) *gobreaker.CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[mc.ID]; exists {
		return breaker
	}

	cfg := cbm.config
	hook := cbm.onChange
	modelID := mc.ID
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-" + modelID,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= cfg.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if hook != nil {
				hook(modelID, from, to)
			}
		},
	})
	cbm.breakers[mc.ID] = breaker
	return breaker
}

// Execute runs fn through the model's breaker
func (cbm *CircuitBreakerManager) Execute(mc registry.ModelConfig, fn func() error) error {
	_, err := cbm.GetBreaker(mc).Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w for model %s", ErrCircuitOpen, mc.ID)
	}
	return err
}

// State returns the current state of a model's breaker
func (cbm *CircuitBreakerManager) State(mc registry.ModelConfig) gobreaker.State {
	return cbm.GetBreaker(mc).State()
}

// Reset drops the breaker of a model
func (cbm *CircuitBreakerManager) Reset(modelID string) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()
	delete(cbm.breakers, modelID)
}
