package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelName(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-20250514", ModelConfig{ID: "anthropic:claude-sonnet-4-20250514"}.Name())
	assert.Equal(t, "local-model", ModelConfig{ID: "local-model"}.Name())
}

func TestLoadRegistryDefaults(t *testing.T) {
	reg, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml")).LoadRegistry()
	require.NoError(t, err)
	require.NotNil(t, reg.GetModelByID("anthropic:claude-sonnet-4-20250514"))
	assert.Len(t, reg.GetModelsByProvider("openai"), 2)
}

func TestLoadRegistryOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  - id: openai:gpt-4o
    provider: openai
    base_url: http://localhost:8000/v1
    api_key_env: LOCAL_KEY
    max_tokens: 2048
    timeout: 30s
  - id: openai:qwen2.5-coder
    provider: openai
    base_url: http://localhost:8000/v1
    pricing:
      currency: USD
`), 0644))

	reg, err := NewLoader(path).LoadRegistry()
	require.NoError(t, err)

	gpt := reg.GetModelByID("openai:gpt-4o")
	require.NotNil(t, gpt)
	assert.Equal(t, "http://localhost:8000/v1", gpt.BaseURL)
	assert.Equal(t, 2048, gpt.MaxTokens)
	assert.Equal(t, 30*time.Second, gpt.Timeout)
	assert.NotNil(t, reg.GetModelByID("openai:qwen2.5-coder"))
	assert.Len(t, reg.Models, 5)
}

func TestLoadRegistryRejectsInvalidModels(t *testing.T) {
	_, err := LoadRegistryFromBytes([]byte("models:\n  - id: x\n"))
	assert.ErrorContains(t, err, "provider is required")

	_, err = LoadRegistryFromBytes([]byte("models: ["))
	assert.ErrorContains(t, err, "failed to parse YAML config")
}
