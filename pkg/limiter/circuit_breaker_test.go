package limiter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/snow-ghost/skilltune/pkg/registry"
)

func testModel(id string) registry.ModelConfig {
	return registry.ModelConfig{ID: id, Provider: "anthropic"}
}

func TestCircuitBreakerManager(t *testing.T) {
	cbm := NewCircuitBreakerManager(nil)
	model := testModel("anthropic:test")

	breaker1 := cbm.GetBreaker(model)
	breaker2 := cbm.GetBreaker(model)
	if breaker1 != breaker2 {
		t.Error("Expected same breaker instance for the same model")
	}

	if err := cbm.Execute(model, func() error { return nil }); err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if cbm.State(model) != gobreaker.StateClosed {
		t.Errorf("Expected closed state, got %v", cbm.State(model))
	}
}

func TestCircuitBreakerManagerOpens(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.MinRequests = 3
	config.Timeout = time.Hour
	cbm := NewCircuitBreakerManager(config)
	model := testModel("anthropic:flaky")

	var (
		mu          sync.Mutex
		transitions []gobreaker.State
	)
	cbm.OnStateChange(func(modelID string, from, to gobreaker.State) {
		mu.Lock()
		defer mu.Unlock()
		if modelID != model.ID {
			t.Errorf("Expected hook for %s, got %s", model.ID, modelID)
		}
		transitions = append(transitions, to)
	})

	failure := errors.New("upstream down")
	for i := 0; i < 3; i++ {
		if err := cbm.Execute(model, func() error { return failure }); !errors.Is(err, failure) {
			t.Fatalf("Expected upstream error on call %d, got %v", i, err)
		}
	}

	called := false
	err := cbm.Execute(model, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected open breaker to short-circuit the call")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("Expected one transition to open, got %v", transitions)
	}
}

func TestCircuitBreakerManagerReset(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.MinRequests = 1
	config.Timeout = time.Hour
	cbm := NewCircuitBreakerManager(config)
	model := testModel("openai:gpt-4o")

	_ = cbm.Execute(model, func() error { return errors.New("boom") })
	if cbm.State(model) != gobreaker.StateOpen {
		t.Fatalf("Expected open state, got %v", cbm.State(model))
	}

	cbm.Reset(model.ID)
	if cbm.State(model) != gobreaker.StateClosed {
		t.Errorf("Expected closed state after reset, got %v", cbm.State(model))
	}
}

func TestCircuitBreakerManagerIsolatesModels(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.MinRequests = 1
	config.Timeout = time.Hour
	cbm := NewCircuitBreakerManager(config)

	_ = cbm.Execute(testModel("a:bad"), func() error { return errors.New("boom") })
	if err := cbm.Execute(testModel("b:good"), func() error { return nil }); err != nil {
		t.Errorf("Expected other model unaffected, got %v", err)
	}
}
