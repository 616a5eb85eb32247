package registry

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles loading model configurations
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// LoadRegistry returns the default registry overlaid with the YAML file at
// the loader's path. A missing or unset path yields the defaults.
func (l *Loader) LoadRegistry() (*Registry, error) {
	reg := GetDefaultRegistry()
	if l.configPath == "" {
		return reg, nil
	}
	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		return reg, nil
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", l.configPath, err)
	}
	loaded, err := LoadRegistryFromBytes(data)
	if err != nil {
		return nil, err
	}
	reg.Merge(loaded)
	return reg, nil
}

// LoadRegistryFromBytes loads registry from byte data
func LoadRegistryFromBytes(data []byte) (*Registry, error) {
	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	for _, m := range registry.Models {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	return &registry, nil
}

// GetDefaultRegistry returns a registry with the supported default models
func GetDefaultRegistry() *Registry {
	return &Registry{
		Models: []ModelConfig{
			{
				ID:        "anthropic:claude-sonnet-4-20250514",
				Provider:  "anthropic",
				BaseURL:   "https://api.anthropic.com",
				APIKeyEnv: "ANTHROPIC_API_KEY",
				Pricing: Pricing{
					Currency:    "USD",
					InputPer1K:  0.003,
					OutputPer1K: 0.015,
				},
				MaxTokens:   8192,
				Temperature: 0.7,
				Timeout:     5 * time.Minute,
				MaxRPM:      50,
				MaxTPM:      400000,
			},
			{
				ID:        "anthropic:claude-3-5-sonnet-20241022",
				Provider:  "anthropic",
				BaseURL:   "https://api.anthropic.com",
				APIKeyEnv: "ANTHROPIC_API_KEY",
				Pricing: Pricing{
					Currency:    "USD",
					InputPer1K:  0.003,
					OutputPer1K: 0.015,
				},
				MaxTokens:   8192,
				Temperature: 0.7,
				Timeout:     5 * time.Minute,
				MaxRPM:      50,
				MaxTPM:      400000,
			},
			{
				ID:        "openai:gpt-4o",
				Provider:  "openai",
				BaseURL:   "https://api.openai.com/v1",
				APIKeyEnv: "OPENAI_API_KEY",
				Pricing: Pricing{
					Currency:    "USD",
					InputPer1K:  0.0025,
					OutputPer1K: 0.01,
				},
				MaxTokens:   8192,
				Temperature: 0.7,
				Timeout:     5 * time.Minute,
				MaxRPM:      500,
				MaxTPM:      300000,
			},
			{
				ID:        "openai:gpt-4o-mini",
				Provider:  "openai",
				BaseURL:   "https://api.openai.com/v1",
				APIKeyEnv: "OPENAI_API_KEY",
				Pricing: Pricing{
					Currency:    "USD",
					InputPer1K:  0.00015,
					OutputPer1K: 0.0006,
				},
				MaxTokens:   8192,
				Temperature: 0.7,
				Timeout:     5 * time.Minute,
				MaxRPM:      500,
				MaxTPM:      200000,
			},
		},
	}
}
