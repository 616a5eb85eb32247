package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/snow-ghost/skilltune/pkg/logging"
	"github.com/snow-ghost/skilltune/pkg/metrics"
	"github.com/snow-ghost/skilltune/pkg/tracing"
)

// Manager manages all observability components
type Manager struct {
	metrics *metrics.PrometheusMetrics
	tracer  *tracing.Tracer
	logger  *logging.Logger
}

// Config holds observability configuration
type Config struct {
	ServiceName    string         `yaml:"service_name"`
	ServiceVersion string         `yaml:"service_version"`
	Environment    string         `yaml:"environment"`
	JaegerEndpoint string         `yaml:"jaeger_endpoint"`
	Logging        logging.Config `yaml:"logging"`
}

// NewManager creates a new observability manager registering metrics with reg
func NewManager(config Config, reg prometheus.Registerer) (*Manager, error) {
	tracer, err := tracing.NewTracer(tracing.Config{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		JaegerEndpoint: config.JaegerEndpoint,
		Environment:    config.Environment,
	})
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(config.Logging)
	if err != nil {
		return nil, err
	}

	return &Manager{
		metrics: metrics.NewPrometheusMetrics(reg),
		tracer:  tracer,
		logger:  logger,
	}, nil
}

// New bundles existing components
func New(m *metrics.PrometheusMetrics, tracer *tracing.Tracer, logger *logging.Logger) *Manager {
	return &Manager{metrics: m, tracer: tracer, logger: logger}
}

// NewNop discards logs and spans and keeps metrics in a private registry
func NewNop() *Manager {
	return &Manager{
		metrics: metrics.NewPrometheusMetrics(prometheus.NewRegistry()),
		tracer:  tracing.NewNop(),
		logger:  logging.NewNop(),
	}
}

// GetMetrics returns the metrics instance
func (m *Manager) GetMetrics() *metrics.PrometheusMetrics {
	return m.metrics
}

// GetTracer returns the tracer instance
func (m *Manager) GetTracer() *tracing.Tracer {
	return m.tracer
}

// GetLogger returns the logger instance
func (m *Manager) GetLogger() *logging.Logger {
	return m.logger
}

// WithLogger returns a copy of the manager logging through logger
func (m *Manager) WithLogger(logger *logging.Logger) *Manager {
	return &Manager{metrics: m.metrics, tracer: m.tracer, logger: logger}
}

// RecordLLMRequest records metrics and a log line for one completion call
func (m *Manager) RecordLLMRequest(ctx context.Context, provider, model, purpose, status string, duration time.Duration, inputTokens, outputTokens int, cost float64, currency string) {
	m.metrics.RecordRequest(provider, model, purpose, status)
	m.metrics.RecordLatency(provider, model, duration)
	m.metrics.RecordTokens(provider, model, inputTokens, outputTokens)
	m.metrics.RecordCost(provider, model, currency, cost)
	m.logger.LogLLMRequest(ctx, provider, model, purpose, status, duration, inputTokens+outputTokens, cost)
}

// RecordRetry records a retried completion call
func (m *Manager) RecordRetry(ctx context.Context, provider, model, reason string, attempt int, delay time.Duration) {
	m.metrics.RecordRetry(provider, model, reason)
	m.logger.LogRetry(ctx, provider, model, reason, attempt, delay)
}

// RecordCircuitBreaker records a breaker transition
func (m *Manager) RecordCircuitBreaker(ctx context.Context, model, from, to string) {
	m.metrics.RecordCircuitTransition(model, to)
	m.logger.LogCircuitBreaker(ctx, model, from, to)
}

// RecordCase records the outcome and duration of one training case
func (m *Manager) RecordCase(ctx context.Context, iteration int, caseID string, score float64, validatePassed bool, duration time.Duration) {
	m.metrics.RecordCase(duration)
	m.logger.LogCase(ctx, iteration, caseID, score, validatePassed, duration)
}

// RecordCaseFailure records a case recovered at the case boundary
func (m *Manager) RecordCaseFailure(ctx context.Context, iteration int, caseID, stage string, err error) {
	m.metrics.RecordCaseFailure(stage)
	m.logger.Warn("Case failed", "iteration", iteration, "case_id", caseID, "stage", stage, "error", err)
}

// RecordExtraction records sections that fell back to empty content
func (m *Manager) RecordExtraction(ctx context.Context, caseID string, missing []string) {
	if len(missing) == 0 {
		return
	}
	for _, section := range missing {
		m.metrics.RecordExtractionFallback(section)
	}
	m.logger.Warn("Artifact sections missing from completion", "case_id", caseID, "sections", missing)
}

// RecordIteration records one completed batch and the decision taken on it
func (m *Manager) RecordIteration(ctx context.Context, iteration, cases int, avgScore, passRate float64, decision, reason string) {
	m.metrics.RecordIteration(decision, avgScore, passRate)
	m.logger.LogIteration(ctx, iteration, avgScore, passRate, cases)
	m.logger.LogDecision(ctx, iteration, decision, reason)
}

// RecordValidationCache records a validation cache lookup
func (m *Manager) RecordValidationCache(hit bool) {
	m.metrics.RecordValidationCache(hit)
}

// Shutdown shuts down all observability components
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.tracer.Shutdown(ctx); err != nil {
		return err
	}
	// Sync on a terminal returns ENOTTY; nothing is lost.
	_ = m.logger.Sync()
	return nil
}

type contextKey string

const runIDKey contextKey = "run_id"

// WithRunID adds the tuning run ID to context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDKey).(string); ok {
		return runID
	}
	return ""
}
