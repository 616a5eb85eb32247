package providers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/snow-ghost/skilltune/pkg/chat"
	"github.com/snow-ghost/skilltune/pkg/limiter"
	"github.com/snow-ghost/skilltune/pkg/registry"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs
type OpenAIProvider struct {
	*BaseProvider
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(baseURL, apiKey string, reg *registry.Registry) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if reg == nil {
		reg = registry.GetDefaultRegistry()
	}
	return &OpenAIProvider{
		BaseProvider: NewBaseProvider(reg),
		client:       openai.NewClientWithConfig(config),
	}
}

// Chat performs chat completion using OpenAI API
func (p *OpenAIProvider) Chat(ctx context.Context, mc registry.ModelConfig, req chat.Request) (chat.Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = mc.MaxTokens
	}

	request := openai.ChatCompletionRequest{
		Model:       mc.Name(),
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}

	response, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
			return chat.Response{}, limiter.NewHTTPError(apiErr.HTTPStatusCode, "openai: "+apiErr.Message, "")
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return chat.Response{}, limiter.NewHTTPError(reqErr.HTTPStatusCode, "openai: "+reqErr.Error(), "")
		}
		return chat.Response{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return chat.Response{}, fmt.Errorf("openai chat completion returned no choices")
	}

	chatResp := chat.Response{
		Text: response.Choices[0].Message.Content,
		Usage: chat.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		},
		Model:        mc.ID,
		Provider:     mc.Provider,
		FinishReason: string(response.Choices[0].FinishReason),
	}
	p.fillUsage(mc, req, &chatResp)
	return chatResp, nil
}

// CreateOpenAIProviderFromConfig creates an OpenAI provider from model config.
// An empty APIKeyEnv is allowed for local OpenAI-compatible servers.
func CreateOpenAIProviderFromConfig(mc registry.ModelConfig, reg *registry.Registry) (*OpenAIProvider, error) {
	apiKey := ""
	if mc.APIKeyEnv != "" {
		apiKey = os.Getenv(mc.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, mc.APIKeyEnv)
		}
	}
	return NewOpenAIProvider(mc.BaseURL, apiKey, reg), nil
}
