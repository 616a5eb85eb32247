package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec

	// Token metrics
	TokensInputTotal  *prometheus.CounterVec
	TokensOutputTotal *prometheus.CounterVec

	// Cost metrics
	CostTotal *prometheus.CounterVec

	// Retry metrics
	RetriesTotal *prometheus.CounterVec

	// Circuit breaker transitions, labelled by target state
	CircuitTransitionsTotal *prometheus.CounterVec

	// Tuning metrics
	IterationsTotal       *prometheus.CounterVec
	AvgScore              prometheus.Gauge
	ValidatePassRate      prometheus.Gauge
	BestScore             prometheus.Gauge
	CaseDuration          prometheus.Histogram
	CaseFailuresTotal     *prometheus.CounterVec
	ExtractionFallbacks   *prometheus.CounterVec
	ValidationCacheHits   prometheus.Counter
	ValidationCacheMisses prometheus.Counter
	SkillRevisionsTotal   *prometheus.CounterVec
}

// NewPrometheusMetrics registers all metrics with reg. A nil reg uses the
// default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests",
			},
			[]string{"provider", "model", "purpose", "status"},
		),

		LatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_latency_seconds",
				Help:    "LLM request latency in seconds",
				Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"provider", "model"},
		),

		TokensInputTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_input_total",
				Help: "Total number of input tokens processed",
			},
			[]string{"provider", "model"},
		),

		TokensOutputTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_output_total",
				Help: "Total number of output tokens generated",
			},
			[]string{"provider", "model"},
		),

		CostTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_cost_total",
				Help: "Total cost of LLM requests",
			},
			[]string{"provider", "model", "currency"},
		),

		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_retries_total",
				Help: "Total number of retries",
			},
			[]string{"provider", "model", "reason"},
		),

		CircuitTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_circuit_transitions_total",
				Help: "Circuit breaker state transitions by target state",
			},
			[]string{"model", "state"},
		),

		IterationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skilltune_iterations_total",
				Help: "Completed tuning iterations by decision",
			},
			[]string{"decision"},
		),

		AvgScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skilltune_avg_score",
			Help: "Average composite score of the last batch",
		}),

		ValidatePassRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skilltune_validate_pass_rate",
			Help: "Validation pass rate of the last batch",
		}),

		BestScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skilltune_best_score",
			Help: "Score of the best checkpoint",
		}),

		CaseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "skilltune_case_duration_seconds",
			Help:    "Time to generate and evaluate one training case",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		CaseFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skilltune_case_failures_total",
				Help: "Cases that failed at the case boundary, by stage",
			},
			[]string{"stage"},
		),

		ExtractionFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skilltune_extraction_fallbacks_total",
				Help: "Artifact sections that fell back to empty content",
			},
			[]string{"section"},
		),

		ValidationCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "skilltune_validation_cache_hits_total",
			Help: "Validations served from the cache",
		}),

		ValidationCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "skilltune_validation_cache_misses_total",
			Help: "Validations that ran terraform",
		}),

		SkillRevisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skilltune_skill_revisions_total",
				Help: "Skill revision attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequest records a request metric
func (m *PrometheusMetrics) RecordRequest(provider, model, purpose, status string) {
	m.RequestsTotal.WithLabelValues(provider, model, purpose, status).Inc()
}

// RecordLatency records a latency metric
func (m *PrometheusMetrics) RecordLatency(provider, model string, duration time.Duration) {
	m.LatencyHistogram.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordTokens records token metrics
func (m *PrometheusMetrics) RecordTokens(provider, model string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		m.TokensInputTotal.WithLabelValues(provider, model).Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.TokensOutputTotal.WithLabelValues(provider, model).Add(float64(outputTokens))
	}
}

// RecordCost records a cost metric
func (m *PrometheusMetrics) RecordCost(provider, model, currency string, cost float64) {
	if cost > 0 {
		m.CostTotal.WithLabelValues(provider, model, currency).Add(cost)
	}
}

// RecordRetry records a retry
func (m *PrometheusMetrics) RecordRetry(provider, model, reason string) {
	m.RetriesTotal.WithLabelValues(provider, model, reason).Inc()
}

// RecordCircuitTransition records a breaker moving to state
func (m *PrometheusMetrics) RecordCircuitTransition(model, state string) {
	m.CircuitTransitionsTotal.WithLabelValues(model, state).Inc()
}

// RecordIteration records one completed batch
func (m *PrometheusMetrics) RecordIteration(decision string, avgScore, passRate float64) {
	m.IterationsTotal.WithLabelValues(decision).Inc()
	m.AvgScore.Set(avgScore)
	m.ValidatePassRate.Set(passRate)
}

// RecordBestScore records the score of a new checkpoint
func (m *PrometheusMetrics) RecordBestScore(score float64) {
	m.BestScore.Set(score)
}

// RecordCase records how long one case took
func (m *PrometheusMetrics) RecordCase(duration time.Duration) {
	m.CaseDuration.Observe(duration.Seconds())
}

// RecordCaseFailure records a case that failed at stage ("generation" or "evaluation")
func (m *PrometheusMetrics) RecordCaseFailure(stage string) {
	m.CaseFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordExtractionFallback records a section missing from a completion
func (m *PrometheusMetrics) RecordExtractionFallback(section string) {
	m.ExtractionFallbacks.WithLabelValues(section).Inc()
}

// RecordValidationCache records a validation cache lookup
func (m *PrometheusMetrics) RecordValidationCache(hit bool) {
	if hit {
		m.ValidationCacheHits.Inc()
	} else {
		m.ValidationCacheMisses.Inc()
	}
}

// RecordSkillRevision records the outcome of a revision ("revised", "fallback", "error", "skipped")
func (m *PrometheusMetrics) RecordSkillRevision(outcome string) {
	m.SkillRevisionsTotal.WithLabelValues(outcome).Inc()
}
