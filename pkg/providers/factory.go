package providers

import (
	"errors"
	"fmt"

	"github.com/snow-ghost/skilltune/pkg/registry"
)

// ErrMissingAPIKey is returned when a model's API key variable is unset.
var ErrMissingAPIKey = errors.New("API key not found in environment variable")

// DefaultProviderFactory creates providers from model configuration
type DefaultProviderFactory struct{}

// NewProviderFactory creates a new provider factory
func NewProviderFactory() *DefaultProviderFactory {
	return &DefaultProviderFactory{}
}

// CreateProviderFromConfig creates a provider instance from model configuration
func (f *DefaultProviderFactory) CreateProviderFromConfig(mc registry.ModelConfig, reg *registry.Registry) (Provider, error) {
	switch mc.Provider {
	case "anthropic":
		return CreateAnthropicProviderFromConfig(mc, reg)
	case "openai":
		return CreateOpenAIProviderFromConfig(mc, reg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", mc.Provider)
	}
}

// GetSupportedProviders returns a list of supported provider types
func (f *DefaultProviderFactory) GetSupportedProviders() []string {
	return []string{"anthropic", "openai"}
}
