package cost

import (
	"testing"

	"github.com/snow-ghost/skilltune/pkg/chat"
	"github.com/snow-ghost/skilltune/pkg/registry"
)

func TestCalcCost(t *testing.T) {
	tests := []struct {
		name       string
		usage      chat.Usage
		pricing    registry.Pricing
		wantInput  float64
		wantOutput float64
		wantTotal  float64
	}{
		{
			name:       "basic calculation",
			usage:      chat.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500},
			pricing:    registry.Pricing{Currency: "USD", InputPer1K: 0.0015, OutputPer1K: 0.006},
			wantInput:  0.0015,
			wantOutput: 0.003,
			wantTotal:  0.0045,
		},
		{
			name:    "zero tokens",
			usage:   chat.Usage{},
			pricing: registry.Pricing{Currency: "USD", InputPer1K: 0.0015, OutputPer1K: 0.006},
		},
		{
			name:       "rounds to six decimals",
			usage:      chat.Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
			pricing:    registry.Pricing{Currency: "USD", InputPer1K: 0.00015, OutputPer1K: 0.0006},
			wantInput:  0.0,
			wantOutput: 0.000001,
			wantTotal:  0.000001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, out, total := CalcCost(tt.usage, tt.pricing)
			if in != tt.wantInput {
				t.Errorf("input cost = %v, want %v", in, tt.wantInput)
			}
			if out != tt.wantOutput {
				t.Errorf("output cost = %v, want %v", out, tt.wantOutput)
			}
			if total != tt.wantTotal {
				t.Errorf("total cost = %v, want %v", total, tt.wantTotal)
			}
		})
	}
}

func TestCalcCostForModel(t *testing.T) {
	calc := NewCalculator(registry.GetDefaultRegistry())

	res, err := calc.CalcCostForModel("anthropic:claude-sonnet-4-20250514", chat.Usage{
		PromptTokens: 2000, CompletionTokens: 1000, TotalTokens: 3000,
	})
	if err != nil {
		t.Fatalf("CalcCostForModel() error = %v", err)
	}
	if res.TotalCost != 0.021 {
		t.Errorf("TotalCost = %v, want 0.021", res.TotalCost)
	}
	if res.Currency != "USD" {
		t.Errorf("Currency = %s, want USD", res.Currency)
	}
	if got := Format(res); got != "0.021000 USD" {
		t.Errorf("Format() = %q", got)
	}

	if _, err := calc.CalcCostForModel("unknown:model", chat.Usage{}); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestForPricingDefaultsCurrency(t *testing.T) {
	res := ForPricing(chat.Usage{PromptTokens: 10}, registry.Pricing{})
	if res.Currency != "USD" || res.TotalCost != 0 {
		t.Errorf("ForPricing() = %+v", res)
	}
}
