// Package config assembles the skilltune configuration from defaults, an
// optional YAML file and environment variables. Command-line flags are
// applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snow-ghost/skilltune/corpus"
	"github.com/snow-ghost/skilltune/pkg/accounting"
	"github.com/snow-ghost/skilltune/pkg/cache"
	"github.com/snow-ghost/skilltune/pkg/limiter"
	"github.com/snow-ghost/skilltune/pkg/logging"
	"github.com/snow-ghost/skilltune/pkg/observability"
	"github.com/snow-ghost/skilltune/pkg/providers"
	"github.com/snow-ghost/skilltune/pkg/registry"
	"github.com/snow-ghost/skilltune/tuner"
	"github.com/snow-ghost/skilltune/validate"
)

// ConfigEnv names the variable holding the YAML config path
const ConfigEnv = "SKILLTUNE_CONFIG"

// Configuration errors. They alias the errors of the packages that detect
// the same condition at use time so errors.Is matches either.
var (
	ErrMissingAPIKey = providers.ErrMissingAPIKey
	ErrMissingSkill  = errors.New("skill document not found")
	ErrEmptyCorpus   = corpus.ErrEmpty
)

// History backends
const (
	HistoryJSON   = "json"
	HistorySQLite = "sqlite"
)

// Config holds configuration for a tuning run
type Config struct {
	Model        string `yaml:"model"` // registry model id
	RegistryPath string `yaml:"registry_path"`

	SkillPath string `yaml:"skill_path"`
	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`

	HistoryBackend string `yaml:"history_backend"`
	HistoryDir     string `yaml:"history_dir"`
	HistoryDB      string `yaml:"history_db"`

	MetricsAddr string `yaml:"metrics_addr"` // empty disables the endpoint

	Tuning          tuner.Config                 `yaml:"tuning"`
	Terraform       validate.TerraformConfig     `yaml:"terraform"`
	TFLint          validate.TFLintConfig        `yaml:"tflint"`
	ValidationCache cache.CacheConfig            `yaml:"validation_cache"`
	Retry           limiter.RetryConfig          `yaml:"retry"`
	CircuitBreaker  limiter.CircuitBreakerConfig `yaml:"circuit_breaker"`
	Accounting      accounting.Config            `yaml:"accounting"`
	Observability   observability.Config         `yaml:"observability"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Model:           "anthropic:claude-sonnet-4-20250514",
		SkillPath:       "skills/terraform-aws.md",
		DataDir:         "data",
		OutputDir:       "output",
		HistoryBackend:  HistoryJSON,
		HistoryDir:      "history",
		HistoryDB:       "history/skilltune.db",
		Tuning:          tuner.DefaultConfig(),
		Terraform:       validate.DefaultTerraformConfig(),
		TFLint:          validate.DefaultTFLintConfig(),
		ValidationCache: *cache.DefaultCacheConfig(),
		Retry:           *limiter.DefaultRetryConfig(),
		CircuitBreaker:  *limiter.DefaultCircuitBreakerConfig(),
		Accounting: accounting.Config{
			UseSQLite: true,
			DBPath:    "history/costs.db",
			Currency:  "USD",
		},
		Observability: observability.Config{
			ServiceName:    "skilltune",
			ServiceVersion: "dev",
			Environment:    "local",
			Logging:        logging.DefaultConfig(),
		},
	}
}

// Load returns the defaults overlaid with the YAML file named by
// SKILLTUNE_CONFIG, then with environment variables
func Load() (*Config, error) {
	config := Default()
	if path := os.Getenv(ConfigEnv); path != "" {
		if err := config.MergeFile(path); err != nil {
			return nil, err
		}
	}
	config.applyEnv()
	return config, nil
}

// MergeFile overlays the YAML file at path. Keys absent from the file keep
// their current values.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Model = getEnv("SKILLTUNE_MODEL", c.Model)
	c.RegistryPath = getEnv("SKILLTUNE_REGISTRY", c.RegistryPath)
	c.SkillPath = getEnv("SKILLTUNE_SKILL", c.SkillPath)
	c.DataDir = getEnv("SKILLTUNE_DATA_DIR", c.DataDir)
	c.OutputDir = getEnv("SKILLTUNE_OUTPUT_DIR", c.OutputDir)
	c.HistoryBackend = strings.ToLower(getEnv("SKILLTUNE_HISTORY", c.HistoryBackend))
	c.HistoryDir = getEnv("SKILLTUNE_HISTORY_DIR", c.HistoryDir)
	c.HistoryDB = getEnv("SKILLTUNE_HISTORY_DB", c.HistoryDB)
	c.MetricsAddr = getEnv("SKILLTUNE_METRICS_ADDR", c.MetricsAddr)

	c.Tuning.MaxIterations = getEnvInt("SKILLTUNE_MAX_ITERATIONS", c.Tuning.MaxIterations)
	c.Tuning.Target = getEnvFloat("SKILLTUNE_TARGET", c.Tuning.Target)
	c.Tuning.GenerationTimeout = getEnvDuration("SKILLTUNE_GENERATION_TIMEOUT", c.Tuning.GenerationTimeout)

	c.Terraform.Binary = getEnv("TERRAFORM_BIN", c.Terraform.Binary)
	c.Terraform.InitTimeout = getEnvDuration("TERRAFORM_INIT_TIMEOUT", c.Terraform.InitTimeout)
	c.Terraform.ValidateTimeout = getEnvDuration("TERRAFORM_VALIDATE_TIMEOUT", c.Terraform.ValidateTimeout)
	c.TFLint.Binary = getEnv("TFLINT_BIN", c.TFLint.Binary)
	c.TFLint.Timeout = getEnvDuration("TFLINT_TIMEOUT", c.TFLint.Timeout)

	c.Retry.MaxRetries = getEnvInt("LLM_MAX_RETRIES", c.Retry.MaxRetries)
	c.Accounting.Budget = getEnvFloat("SKILLTUNE_BUDGET", c.Accounting.Budget)

	c.Observability.JaegerEndpoint = getEnv("JAEGER_ENDPOINT", c.Observability.JaegerEndpoint)
	c.Observability.Environment = getEnv("ENVIRONMENT", c.Observability.Environment)
	c.Observability.Logging.Level = getEnv("LOG_LEVEL", c.Observability.Logging.Level)
	c.Observability.Logging.Format = getEnv("LOG_FORMAT", c.Observability.Logging.Format)
}

// Validate checks everything a tuning run needs before its first iteration
func (c *Config) Validate() error {
	if c.SkillPath == "" {
		return fmt.Errorf("%w: no skill path configured", ErrMissingSkill)
	}
	if _, err := os.Stat(c.SkillPath); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingSkill, c.SkillPath)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: no data directory configured", ErrEmptyCorpus)
	}
	if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrEmptyCorpus, c.DataDir)
	}
	switch c.HistoryBackend {
	case HistoryJSON, HistorySQLite:
	default:
		return fmt.Errorf("unknown history backend %q", c.HistoryBackend)
	}
	return c.Tuning.Validate()
}

// ResolveModel loads the model registry and returns the configured model.
// The model's API key variable must be set.
func (c *Config) ResolveModel() (*registry.Registry, registry.ModelConfig, error) {
	reg, err := registry.NewLoader(c.RegistryPath).LoadRegistry()
	if err != nil {
		return nil, registry.ModelConfig{}, err
	}
	mc := reg.GetModelByID(c.Model)
	if mc == nil {
		return nil, registry.ModelConfig{}, fmt.Errorf("model %q not found in registry", c.Model)
	}
	if mc.APIKeyEnv != "" && os.Getenv(mc.APIKeyEnv) == "" {
		return nil, registry.ModelConfig{}, fmt.Errorf("%w: %s", ErrMissingAPIKey, mc.APIKeyEnv)
	}
	return reg, *mc, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
