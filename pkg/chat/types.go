// Package chat holds the provider-neutral completion request and response types.
package chat

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request represents a chat completion request
type Request struct {
	Model       string            `json:"model"`
	System      string            `json:"system,omitempty"`
	Messages    []Message         `json:"messages"`
	Temperature float32           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Caller      string            `json:"caller,omitempty"` // run id
	Purpose     string            `json:"purpose,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Texts returns the system prompt and message contents, for token estimation.
func (r Request) Texts() []string {
	texts := make([]string, 0, len(r.Messages)+1)
	if r.System != "" {
		texts = append(texts, r.System)
	}
	for _, m := range r.Messages {
		texts = append(texts, m.Content)
	}
	return texts
}

// Response represents a chat completion response
type Response struct {
	Text         string `json:"text"`
	Usage        Usage  `json:"usage"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	FinishReason string `json:"finish_reason"`
}

// UserMessage builds a single user turn.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
