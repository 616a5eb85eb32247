package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracer
type Tracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Config holds tracing configuration
type Config struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
	Environment    string `yaml:"environment"`
}

// NewTracer creates a tracer exporting to Jaeger. Without an endpoint it
// returns a noop tracer.
func NewTracer(config Config) (*Tracer, error) {
	if config.JaegerEndpoint == "" {
		return NewNop(), nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		tracer:   tp.Tracer(config.ServiceName),
		shutdown: tp.Shutdown,
	}, nil
}

// NewWithProvider builds a tracer over an existing provider. Shutdown is the
// caller's responsibility.
func NewWithProvider(tp trace.TracerProvider, name string) *Tracer {
	return &Tracer{tracer: tp.Tracer(name)}
}

// NewNop returns a tracer that records nothing
func NewNop() *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer("skilltune")}
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartRunSpan starts the root span of a tuning run
func (t *Tracer) StartRunSpan(ctx context.Context, runID string, maxIterations int, target float64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "tune.run", trace.WithAttributes(
		attribute.String("tune.run_id", runID),
		attribute.Int("tune.max_iterations", maxIterations),
		attribute.Float64("tune.target", target),
	))
}

// StartIterationSpan starts a span for one batch
func (t *Tracer) StartIterationSpan(ctx context.Context, iteration int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "tune.iteration", trace.WithAttributes(
		attribute.Int("tune.iteration", iteration),
	))
}

// StartCaseSpan starts a span for generating and scoring one case
func (t *Tracer) StartCaseSpan(ctx context.Context, iteration int, caseID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "tune.case", trace.WithAttributes(
		attribute.Int("tune.iteration", iteration),
		attribute.String("tune.case_id", caseID),
	))
}

// StartRequestSpan starts a span for an LLM request
func (t *Tracer) StartRequestSpan(ctx context.Context, purpose, model, provider string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "llm.request", trace.WithAttributes(
		attribute.String("llm.purpose", purpose),
		attribute.String("llm.model", model),
		attribute.String("llm.provider", provider),
		attribute.String("llm.operation", "chat_completion"),
	))
}

// AddSpanAttributes adds attributes to a span
func AddSpanAttributes(span trace.Span, attrs map[string]interface{}) {
	for key, value := range attrs {
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(key, v))
		case int:
			span.SetAttributes(attribute.Int(key, v))
		case int64:
			span.SetAttributes(attribute.Int64(key, v))
		case float64:
			span.SetAttributes(attribute.Float64(key, v))
		case bool:
			span.SetAttributes(attribute.Bool(key, v))
		case []string:
			span.SetAttributes(attribute.StringSlice(key, v))
		default:
			span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
		}
	}
}

// RecordSpanError records an error in a span
func RecordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSpanSuccess records success in a span
func RecordSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// RecordSpanDuration records duration in a span
func RecordSpanDuration(span trace.Span, duration time.Duration) {
	span.SetAttributes(attribute.Float64("duration_ms", float64(duration.Nanoseconds())/1e6))
}

// RecordSpanTokens records token usage in a span
func RecordSpanTokens(span trace.Span, inputTokens, outputTokens int) {
	span.SetAttributes(
		attribute.Int("tokens.input", inputTokens),
		attribute.Int("tokens.output", outputTokens),
		attribute.Int("tokens.total", inputTokens+outputTokens),
	)
}

// RecordSpanCost records cost in a span
func RecordSpanCost(span trace.Span, cost float64, currency string) {
	span.SetAttributes(
		attribute.Float64("cost.total", cost),
		attribute.String("cost.currency", currency),
	)
}

// Shutdown flushes and stops the exporter, if any
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// GetTraceID extracts trace ID from context
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
