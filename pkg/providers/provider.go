// Package providers adapts LLM vendor APIs to a single chat interface.
package providers

import (
	"context"

	"github.com/snow-ghost/skilltune/pkg/chat"
	"github.com/snow-ghost/skilltune/pkg/cost"
	"github.com/snow-ghost/skilltune/pkg/registry"
	"github.com/snow-ghost/skilltune/pkg/tokens"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Chat performs chat completion
	Chat(ctx context.Context, mc registry.ModelConfig, req chat.Request) (chat.Response, error)

	// GetCostCalculator returns the cost calculator for this provider
	GetCostCalculator() *cost.Calculator
}

// BaseProvider provides common functionality for all providers
type BaseProvider struct {
	costCalculator *cost.Calculator
	tokenRegistry  *tokens.EncoderRegistry
}

// NewBaseProvider creates a new base provider
func NewBaseProvider(registry *registry.Registry) *BaseProvider {
	return &BaseProvider{
		costCalculator: cost.NewCalculator(registry),
		tokenRegistry:  tokens.GetDefaultRegistry(),
	}
}

// GetCostCalculator returns the cost calculator
func (b *BaseProvider) GetCostCalculator() *cost.Calculator {
	return b.costCalculator
}

// EstimateUsage estimates token usage when the provider omits it
func (b *BaseProvider) EstimateUsage(model string, messages []string, responseText string) chat.Usage {
	prompt, err := b.tokenRegistry.CountTokensInMessages(model, messages)
	if err != nil {
		prompt = 0
		for _, m := range messages {
			prompt += len(m) / 4
		}
	}

	completion, err := b.tokenRegistry.CountTokens(model, responseText)
	if err != nil {
		completion = len(responseText) / 4
	}
	if completion < 1 {
		completion = 1
	}

	return chat.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// fillUsage estimates usage when resp carries none
func (b *BaseProvider) fillUsage(mc registry.ModelConfig, req chat.Request, resp *chat.Response) {
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 {
		return
	}
	resp.Usage = b.EstimateUsage(mc.Name(), req.Texts(), resp.Text)
}
