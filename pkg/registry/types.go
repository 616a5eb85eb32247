package registry

import (
	"fmt"
	"strings"
	"time"
)

// Pricing represents pricing information for a model
type Pricing struct {
	Currency    string  `json:"currency" yaml:"currency"`
	InputPer1K  float64 `json:"input_per_1k" yaml:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k" yaml:"output_per_1k"`
}

// ModelConfig represents configuration for a model
type ModelConfig struct {
	ID          string        `json:"id" yaml:"id"`             // "anthropic:claude-sonnet-4-20250514"
	Provider    string        `json:"provider" yaml:"provider"` // anthropic|openai
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	APIKeyEnv   string        `json:"api_key_env" yaml:"api_key_env"`
	Pricing     Pricing       `json:"pricing" yaml:"pricing"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens"`
	Temperature float32       `json:"temperature" yaml:"temperature"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxRPM      int           `json:"max_rpm,omitempty" yaml:"max_rpm,omitempty"` // requests per minute
	MaxTPM      int           `json:"max_tpm,omitempty" yaml:"max_tpm,omitempty"` // tokens per minute
}

// Name returns the provider-side model name, the part of ID after "provider:".
func (m ModelConfig) Name() string {
	if i := strings.Index(m.ID, ":"); i >= 0 {
		return m.ID[i+1:]
	}
	return m.ID
}

// Validate checks the fields every provider needs
func (m ModelConfig) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("model id is required")
	}
	if m.Provider == "" {
		return fmt.Errorf("model %s: provider is required", m.ID)
	}
	if m.MaxTokens < 0 {
		return fmt.Errorf("model %s: max_tokens must not be negative", m.ID)
	}
	return nil
}

// Registry represents the model registry
type Registry struct {
	Models []ModelConfig `json:"models" yaml:"models"`
}

// GetModelByID returns a model configuration by ID
func (r *Registry) GetModelByID(id string) *ModelConfig {
	for i := range r.Models {
		if r.Models[i].ID == id {
			return &r.Models[i]
		}
	}
	return nil
}

// GetModelsByProvider returns all models for a specific provider
func (r *Registry) GetModelsByProvider(provider string) []ModelConfig {
	var models []ModelConfig
	for _, model := range r.Models {
		if model.Provider == provider {
			models = append(models, model)
		}
	}
	return models
}

// Merge adds the models of other, replacing entries with the same ID
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	for _, m := range other.Models {
		if existing := r.GetModelByID(m.ID); existing != nil {
			*existing = m
			continue
		}
		r.Models = append(r.Models, m)
	}
}
