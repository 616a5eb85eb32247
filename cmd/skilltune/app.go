package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/snow-ghost/skilltune/config"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/evaluator"
	"github.com/snow-ghost/skilltune/history"
	"github.com/snow-ghost/skilltune/llm"
	"github.com/snow-ghost/skilltune/pkg/accounting"
	"github.com/snow-ghost/skilltune/pkg/limiter"
	"github.com/snow-ghost/skilltune/pkg/observability"
	"github.com/snow-ghost/skilltune/pkg/providers"
	"github.com/snow-ghost/skilltune/validate"
)

const configEnv = config.ConfigEnv

// loadConfig resolves defaults, the config file, env and the root flags.
func loadConfig() (*config.Config, error) {
	if rootFlags.configPath != "" {
		if err := os.Setenv(config.ConfigEnv, rootFlags.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if rootFlags.skillPath != "" {
		cfg.SkillPath = rootFlags.skillPath
	}
	if rootFlags.dataDir != "" {
		cfg.DataDir = rootFlags.dataDir
	}
	if rootFlags.model != "" {
		cfg.Model = rootFlags.model
	}
	return cfg, nil
}

// newObservability builds the manager on its own registry so the metrics
// endpoint only exposes skilltune series.
func newObservability(cfg *config.Config) (*observability.Manager, *prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	obs, err := observability.NewManager(cfg.Observability, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability: %w", err)
	}
	return obs, reg, nil
}

func ensureParent(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// newLedger opens the cost ledger
func newLedger(cfg *config.Config) (*accounting.Manager, error) {
	if cfg.Accounting.UseSQLite {
		if err := ensureParent(cfg.Accounting.DBPath); err != nil {
			return nil, err
		}
	}
	return accounting.NewManager(cfg.Accounting)
}

// newCompleter resolves the configured model and wraps its provider with
// rate limiting, retries, the circuit breaker and cost accounting.
func newCompleter(cfg *config.Config, ledger *accounting.Manager, obs *observability.Manager) (*llm.Completer, error) {
	reg, mc, err := cfg.ResolveModel()
	if err != nil {
		return nil, err
	}
	provider, err := providers.NewProviderFactory().CreateProviderFromConfig(mc, reg)
	if err != nil {
		return nil, err
	}
	retry := cfg.Retry
	breaker := cfg.CircuitBreaker
	protection := limiter.NewProtectionManager(limiter.Config{Retry: &retry, CircuitBreaker: &breaker})

	return llm.NewCompleter(provider, llm.Config{
		Model:      mc,
		Timeout:    cfg.Tuning.GenerationTimeout,
		Protection: protection,
		Ledger:     ledger,
		Obs:        obs,
	}), nil
}

// newEvaluator scores with terraform validate behind the validation cache and tflint.
func newEvaluator(cfg *config.Config, obs *observability.Manager) (*evaluator.Evaluator, error) {
	tf := validate.NewTerraform(cfg.Terraform, validate.ExecRunner)
	cacheConfig := cfg.ValidationCache
	cached, err := validate.NewCached(tf, &cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation cache: %w", err)
	}
	cached.OnLookup(obs.RecordValidationCache)
	return evaluator.New(cached, validate.NewTFLint(cfg.TFLint, validate.ExecRunner)), nil
}

// historyStore opens the configured history backend
type historyStore interface {
	core.HistoryStore
	Close() error
}

type jsonHistory struct {
	*history.JSONStore
}

func (jsonHistory) Close() error { return nil }

func openHistory(cfg *config.Config) (historyStore, error) {
	switch cfg.HistoryBackend {
	case config.HistorySQLite:
		if err := ensureParent(cfg.HistoryDB); err != nil {
			return nil, err
		}
		store, err := history.NewSQLiteStore(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return jsonHistory{history.NewJSONStore(cfg.HistoryDir)}, nil
	}
}

// shutdown flushes spans and logs with a fresh context; the command context
// may already be cancelled.
func shutdown(obs *observability.Manager) {
	if err := obs.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "observability shutdown: %v\n", err)
	}
}
