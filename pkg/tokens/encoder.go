// Package tokens estimates prompt and completion sizes for providers that do
// not report usage, and for prompt-size logging.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encoder counts tokens for a model family
type Encoder interface {
	Count(text string) (int, error)
}

// TiktokenEncoder implements Encoder using tiktoken-go
type TiktokenEncoder struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenEncoder creates a new tiktoken encoder. The BPE ranks are
// fetched on first use of an encoding, so this can fail offline.
func NewTiktokenEncoder(encodingName string) (*TiktokenEncoder, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}
	return &TiktokenEncoder{encoding: encoding}, nil
}

// Encode converts text to tokens
func (e *TiktokenEncoder) Encode(text string) []int {
	return e.encoding.Encode(text, nil, nil)
}

// Count returns the number of tokens in text
func (e *TiktokenEncoder) Count(text string) (int, error) {
	return len(e.encoding.Encode(text, nil, nil)), nil
}

// EstimateEncoder counts roughly four characters per token
type EstimateEncoder struct{}

// Count returns len(text)/4, at least 1
func (EstimateEncoder) Count(text string) (int, error) {
	count := len(text) / 4
	if count < 1 {
		count = 1
	}
	return count, nil
}

// lazyEncoder loads a tiktoken encoding on first use and falls back to the
// estimate when it cannot be loaded.
type lazyEncoder struct {
	name string
	once sync.Once
	enc  Encoder
}

func (l *lazyEncoder) Count(text string) (int, error) {
	l.once.Do(func() {
		if enc, err := NewTiktokenEncoder(l.name); err == nil {
			l.enc = enc
		} else {
			l.enc = EstimateEncoder{}
		}
	})
	return l.enc.Count(text)
}

// EncoderRegistry maps model-name prefixes to encoders
type EncoderRegistry struct {
	mu       sync.RWMutex
	prefixes []string
	encoders map[string]Encoder
	fallback Encoder
}

// NewEncoderRegistry creates a registry whose fallback is EstimateEncoder
func NewEncoderRegistry() *EncoderRegistry {
	return &EncoderRegistry{
		encoders: make(map[string]Encoder),
		fallback: EstimateEncoder{},
	}
}

// RegisterEncoder registers an encoder for every model whose name starts
// with prefix. Longer prefixes win.
func (r *EncoderRegistry) RegisterEncoder(prefix string, encoder Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.encoders[prefix]; !exists {
		r.prefixes = append(r.prefixes, prefix)
	}
	r.encoders[prefix] = encoder
}

// GetEncoder returns the encoder for a model, or the fallback
func (r *EncoderRegistry) GetEncoder(model string) Encoder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	for _, p := range r.prefixes {
		if strings.HasPrefix(model, p) && len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return r.fallback
	}
	return r.encoders[best]
}

// CountTokens counts tokens in text using the appropriate encoder
func (r *EncoderRegistry) CountTokens(model, text string) (int, error) {
	return r.GetEncoder(model).Count(text)
}

// CountTokensInMessages counts tokens in a list of messages
func (r *EncoderRegistry) CountTokensInMessages(model string, messages []string) (int, error) {
	total := 0
	for _, message := range messages {
		count, err := r.CountTokens(model, message)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *EncoderRegistry
)

// GetDefaultRegistry returns the shared registry for the supported model families
func GetDefaultRegistry() *EncoderRegistry {
	defaultOnce.Do(func() {
		defaultRegistry = NewEncoderRegistry()
		cl100k := &lazyEncoder{name: "cl100k_base"}
		o200k := &lazyEncoder{name: "o200k_base"}

		defaultRegistry.RegisterEncoder("gpt-4", cl100k)
		defaultRegistry.RegisterEncoder("gpt-3.5", cl100k)
		defaultRegistry.RegisterEncoder("gpt-4o", o200k)
		// Claude has no public tokenizer; cl100k_base is a close approximation.
		defaultRegistry.RegisterEncoder("claude", cl100k)
	})
	return defaultRegistry
}
