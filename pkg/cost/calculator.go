package cost

import (
	"fmt"
	"math"

	"github.com/snow-ghost/skilltune/pkg/chat"
	"github.com/snow-ghost/skilltune/pkg/registry"
)

// CostResult represents the calculated cost breakdown
type CostResult struct {
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
	Currency     string  `json:"currency"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
}

// Calculator handles cost calculations
type Calculator struct {
	registry *registry.Registry
}

// NewCalculator creates a new cost calculator
func NewCalculator(registry *registry.Registry) *Calculator {
	return &Calculator{registry: registry}
}

// CalcCost calculates the cost for usage and pricing
func CalcCost(u chat.Usage, p registry.Pricing) (inputCost, outputCost, total float64) {
	inputCost = round6(float64(u.PromptTokens) * p.InputPer1K / 1000.0)
	outputCost = round6(float64(u.CompletionTokens) * p.OutputPer1K / 1000.0)
	return inputCost, outputCost, round6(inputCost + outputCost)
}

func round6(v float64) float64 {
	return math.Round(v*1000000) / 1000000
}

// CalcCostForModel calculates cost for a specific model
func (c *Calculator) CalcCostForModel(modelID string, usage chat.Usage) (*CostResult, error) {
	modelConfig := c.registry.GetModelByID(modelID)
	if modelConfig == nil {
		return nil, fmt.Errorf("model %s not found in registry", modelID)
	}
	return ForPricing(usage, modelConfig.Pricing), nil
}

// ForPricing builds the cost breakdown of usage under p
func ForPricing(usage chat.Usage, p registry.Pricing) *CostResult {
	inputCost, outputCost, totalCost := CalcCost(usage, p)
	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}
	return &CostResult{
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    totalCost,
		Currency:     currency,
		InputTokens:  usage.PromptTokens,
		OutputTokens: usage.CompletionTokens,
		TotalTokens:  usage.TotalTokens,
	}
}
