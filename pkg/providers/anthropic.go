package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/snow-ghost/skilltune/pkg/chat"
	"github.com/snow-ghost/skilltune/pkg/limiter"
	"github.com/snow-ghost/skilltune/pkg/registry"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider implements the Provider interface for the Anthropic Messages API
type AnthropicProvider struct {
	*BaseProvider
	client  *http.Client
	baseURL string
	apiKey  string
}

// AnthropicMessage represents a message in Anthropic format
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicRequest represents the request format for Anthropic API
type AnthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []AnthropicMessage `json:"messages"`
	Temperature float32            `json:"temperature,omitempty"`
}

// AnthropicResponse represents the response format from Anthropic API
type AnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(baseURL, apiKey string, reg *registry.Registry) *AnthropicProvider {
	if reg == nil {
		reg = registry.GetDefaultRegistry()
	}
	return &AnthropicProvider{
		BaseProvider: NewBaseProvider(reg),
		client: &http.Client{
			// Per-call deadlines come from the context.
			Timeout: 10 * time.Minute,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Chat performs chat completion using Anthropic API
func (p *AnthropicProvider) Chat(ctx context.Context, mc registry.ModelConfig, req chat.Request) (chat.Response, error) {
	messages := make([]AnthropicMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, AnthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = mc.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 8192
	}

	anthropicReq := AnthropicRequest{
		Model:       mc.Name(),
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    messages,
		Temperature: req.Temperature,
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return chat.Response{}, fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return chat.Response{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return chat.Response{}, fmt.Errorf("anthropic API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := http.StatusText(resp.StatusCode)
		var apiErr anthropicError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return chat.Response{}, limiter.NewHTTPError(resp.StatusCode, "anthropic: "+msg, string(body))
	}

	var anthropicResp AnthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return chat.Response{}, fmt.Errorf("failed to decode anthropic response: %w", err)
	}

	var text strings.Builder
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}

	chatResp := chat.Response{
		Text: text.String(),
		Usage: chat.Usage{
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
			TotalTokens:      anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
		},
		Model:        mc.ID,
		Provider:     mc.Provider,
		FinishReason: anthropicResp.StopReason,
	}
	p.fillUsage(mc, req, &chatResp)
	return chatResp, nil
}

// CreateAnthropicProviderFromConfig creates an Anthropic provider from model config
func CreateAnthropicProviderFromConfig(mc registry.ModelConfig, reg *registry.Registry) (*AnthropicProvider, error) {
	apiKey := os.Getenv(mc.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingAPIKey, mc.APIKeyEnv)
	}
	baseURL := mc.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return NewAnthropicProvider(baseURL, apiKey, reg), nil
}
