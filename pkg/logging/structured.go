package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger with the tuning loop's domain helpers
type Logger struct {
	zap *zap.Logger
}

// Config holds logging configuration
type Config struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // "json" or "console"
	Output    string `yaml:"output"` // "stdout", "stderr" or a file path
	AddCaller bool   `yaml:"add_caller"`
	AddStack  bool   `yaml:"add_stack"`
}

// DefaultConfig logs info and above as JSON to stderr
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}
}

// NewLogger creates a new structured logger
func NewLogger(config Config) (*Logger, error) {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.Output == "" {
		config.Output = "stderr"
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = parseZapLevel(config.Level)
	zapConfig.Encoding = config.Format
	zapConfig.OutputPaths = []string{config.Output}
	zapConfig.ErrorOutputPaths = []string{config.Output}
	zapConfig.DisableCaller = !config.AddCaller
	zapConfig.DisableStacktrace = !config.AddStack
	if config.Format == "console" {
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zap: zapLogger}, nil
}

// New wraps an existing zap logger
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{zap: z}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// parseZapLevel parses zap level from string
func parseZapLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// With adds key/value pairs to the logger context
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{zap: l.zap.With(convertToZapFields(args)...)}
}

// WithRunID tags every entry with the tuning run
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("run_id", runID))}
}

// WithTraceID adds trace ID to logger context
func (l *Logger) WithTraceID(ctx context.Context, traceID string) *Logger {
	return &Logger{zap: l.zap.With(zap.String("trace_id", traceID))}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zap.Debug(msg, convertToZapFields(args)...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.zap.Info(msg, convertToZapFields(args)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zap.Warn(msg, convertToZapFields(args)...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.zap.Error(msg, convertToZapFields(args)...)
}

// convertToZapFields converts key/value args to zap fields. Errors become
// zap.Error fields regardless of key; a trailing key without value is dropped.
func convertToZapFields(args []interface{}) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		if err, isErr := args[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

// LogLLMRequest logs one completion call
func (l *Logger) LogLLMRequest(ctx context.Context, provider, model, purpose, status string, duration time.Duration, tokens int, cost float64) {
	l.zap.Info("LLM request completed",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.String("purpose", purpose),
		zap.String("status", status),
		zap.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
		zap.Int("tokens", tokens),
		zap.Float64("cost", cost),
	)
}

// LogRetry logs a retry operation
func (l *Logger) LogRetry(ctx context.Context, provider, model, reason string, attempt int, delay time.Duration) {
	l.zap.Warn("Request retry",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.String("reason", reason),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)
}

// LogCircuitBreaker logs a circuit breaker transition
func (l *Logger) LogCircuitBreaker(ctx context.Context, model, from, to string) {
	l.zap.Warn("Circuit breaker state changed",
		zap.String("model", model),
		zap.String("from", from),
		zap.String("to", to),
	)
}

// LogCase logs the outcome of one training case
func (l *Logger) LogCase(ctx context.Context, iteration int, caseID string, score float64, validatePassed bool, duration time.Duration) {
	l.zap.Info("Case evaluated",
		zap.Int("iteration", iteration),
		zap.String("case_id", caseID),
		zap.Float64("score", score),
		zap.Bool("validate_passed", validatePassed),
		zap.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	)
}

// LogIteration logs the aggregate of one batch
func (l *Logger) LogIteration(ctx context.Context, iteration int, avgScore, passRate float64, cases int) {
	l.zap.Info("Iteration evaluated",
		zap.Int("iteration", iteration),
		zap.Float64("avg_score", avgScore),
		zap.Float64("validate_pass_rate", passRate),
		zap.Int("cases", cases),
	)
}

// LogDecision logs a state transition of the tuning loop
func (l *Logger) LogDecision(ctx context.Context, iteration int, decision, reason string) {
	l.zap.Info("Tuning decision",
		zap.Int("iteration", iteration),
		zap.String("decision", decision),
		zap.String("reason", reason),
	)
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// GetZap returns the zap logger
func (l *Logger) GetZap() *zap.Logger {
	return l.zap
}
