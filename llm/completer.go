// Package llm implements the generation and revision collaborators over a
// chat completion provider.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/snow-ghost/skilltune/pkg/accounting"
	"github.com/snow-ghost/skilltune/pkg/chat"
	"github.com/snow-ghost/skilltune/pkg/cost"
	"github.com/snow-ghost/skilltune/pkg/limiter"
	"github.com/snow-ghost/skilltune/pkg/observability"
	"github.com/snow-ghost/skilltune/pkg/providers"
	"github.com/snow-ghost/skilltune/pkg/registry"
	"github.com/snow-ghost/skilltune/pkg/tracing"
)

// Purposes label completion calls in metrics and the cost ledger.
const (
	PurposeGenerate = "generate"
	PurposeRevise   = "revise"
)

// DefaultTimeout bounds one completion call including retries.
const DefaultTimeout = 5 * time.Minute

// Completion produces text for a system prompt and a user message.
type Completion interface {
	Complete(ctx context.Context, purpose, system, user string) (string, error)
}

// Config wires a Completer. Protection, Ledger and Obs are optional.
type Config struct {
	Model      registry.ModelConfig
	Timeout    time.Duration
	Protection *limiter.ProtectionManager
	Ledger     *accounting.Manager
	Obs        *observability.Manager
}

// Completer calls one model through rate limiting, retries and the circuit
// breaker, and records usage and cost per call.
type Completer struct {
	provider   providers.Provider
	model      registry.ModelConfig
	timeout    time.Duration
	protection *limiter.ProtectionManager
	ledger     *accounting.Manager
	obs        *observability.Manager
}

// NewCompleter creates a completer for config.Model
func NewCompleter(provider providers.Provider, config Config) *Completer {
	c := &Completer{
		provider:   provider,
		model:      config.Model,
		timeout:    config.Timeout,
		protection: config.Protection,
		ledger:     config.Ledger,
		obs:        config.Obs,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.obs == nil {
		c.obs = observability.NewNop()
	}
	if c.protection != nil {
		c.protection.Retries().OnRetry(func(attempt int, err error, delay time.Duration) {
			c.obs.RecordRetry(context.Background(), c.model.Provider, c.model.ID, retryReason(err), attempt, delay)
		})
		c.protection.Breakers().OnStateChange(func(modelID string, from, to gobreaker.State) {
			c.obs.RecordCircuitBreaker(context.Background(), modelID, from.String(), to.String())
		})
	}
	return c
}

// Model returns the configured model
func (c *Completer) Model() registry.ModelConfig {
	return c.model
}

// Complete implements Completion.
func (c *Completer) Complete(ctx context.Context, purpose, system, user string) (string, error) {
	runID := observability.RunIDFromContext(ctx)
	if c.ledger != nil {
		if err := c.ledger.CheckBudget(ctx, runID); err != nil {
			return "", err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.obs.GetTracer().StartRequestSpan(ctx, purpose, c.model.ID, c.model.Provider)
	defer span.End()

	req := chat.Request{
		Model:       c.model.Name(),
		System:      system,
		Messages:    []chat.Message{chat.UserMessage(user)},
		Temperature: c.model.Temperature,
		MaxTokens:   c.model.MaxTokens,
		Caller:      runID,
		Purpose:     purpose,
	}

	start := time.Now()
	var resp chat.Response
	call := func(ctx context.Context) error {
		var err error
		resp, err = c.provider.Chat(ctx, c.model, req)
		return err
	}

	var err error
	if c.protection != nil {
		err = c.protection.Execute(ctx, c.model, call)
	} else {
		err = call(ctx)
	}
	duration := time.Since(start)

	if err != nil {
		c.obs.RecordLLMRequest(ctx, c.model.Provider, c.model.ID, purpose, "error", duration, 0, 0, 0, "")
		tracing.RecordSpanError(span, err)
		return "", fmt.Errorf("%s completion with %s: %w", purpose, c.model.ID, err)
	}

	spent := cost.ForPricing(resp.Usage, c.model.Pricing)
	c.obs.RecordLLMRequest(ctx, c.model.Provider, c.model.ID, purpose, "ok", duration,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, spent.TotalCost, spent.Currency)
	tracing.RecordSpanTokens(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	tracing.RecordSpanCost(span, spent.TotalCost, spent.Currency)
	tracing.RecordSpanSuccess(span)

	if c.ledger != nil {
		if err := c.ledger.RecordLLMCost(ctx, runID, purpose, c.model.Provider, c.model.ID, spent); err != nil {
			c.obs.GetLogger().Warn("Failed to record completion cost", "model", c.model.ID, "error", err)
		}
	}
	return resp.Text, nil
}

func retryReason(err error) string {
	var httpErr *limiter.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	}
	return "transport"
}
