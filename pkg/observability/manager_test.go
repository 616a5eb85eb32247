package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/snow-ghost/skilltune/pkg/logging"
	"github.com/snow-ghost/skilltune/pkg/metrics"
	"github.com/snow-ghost/skilltune/pkg/tracing"
)

func TestNewManager(t *testing.T) {
	m, err := NewManager(Config{ServiceName: "skilltune", Logging: logging.DefaultConfig()}, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.NotNil(t, m.GetMetrics())
	assert.NotNil(t, m.GetTracer())
	assert.NotNil(t, m.GetLogger())
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestManagerRecords(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	m := New(metrics.NewPrometheusMetrics(reg), tracing.NewNop(), logging.New(zap.New(core)))
	ctx := context.Background()

	m.RecordLLMRequest(ctx, "anthropic", "claude", "generate", "ok", time.Second, 100, 50, 0.01, "USD")
	m.RecordRetry(ctx, "anthropic", "claude", "HTTP 529", 1, time.Second)
	m.RecordCircuitBreaker(ctx, "anthropic:claude", "closed", "open")
	m.RecordCase(ctx, 1, "vpc", 0.7, true, time.Second)
	m.RecordCaseFailure(ctx, 1, "s3", "generation", errors.New("timeout"))
	m.RecordExtraction(ctx, "vpc", nil)
	m.RecordExtraction(ctx, "s3", []string{"outputs", "providers"})
	m.RecordIteration(ctx, 1, 2, 0.35, 0.5, "accepted", "baseline")
	m.RecordValidationCache(true)

	assert.Equal(t, 1, logs.FilterMessage("LLM request completed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Case failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("Artifact sections missing from completion").Len())
	assert.Equal(t, 1, logs.FilterMessage("Tuning decision").Len())

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"llm_requests_total",
		"llm_retries_total",
		"llm_circuit_transitions_total",
		"skilltune_case_failures_total",
		"skilltune_extraction_fallbacks_total",
		"skilltune_iterations_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestNewNop(t *testing.T) {
	m := NewNop()
	m.RecordCase(context.Background(), 1, "vpc", 1, true, time.Millisecond)
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestRunIDContext(t *testing.T) {
	assert.Empty(t, RunIDFromContext(context.Background()))
	ctx := WithRunID(context.Background(), "run-1")
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
}
