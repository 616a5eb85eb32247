package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snow-ghost/skilltune/core"
)

// TerraformConfig holds the terraform adapter settings
type TerraformConfig struct {
	Binary          string        `yaml:"binary"`
	InitTimeout     time.Duration `yaml:"init_timeout"`
	ValidateTimeout time.Duration `yaml:"validate_timeout"`
}

// DefaultTerraformConfig returns the default terraform settings
func DefaultTerraformConfig() TerraformConfig {
	return TerraformConfig{
		Binary:          "terraform",
		InitTimeout:     120 * time.Second,
		ValidateTimeout: 60 * time.Second,
	}
}

// Terraform validates a directory with `terraform init` then `terraform validate`.
type Terraform struct {
	config TerraformConfig
	run    CommandRunner
}

func NewTerraform(config TerraformConfig, run CommandRunner) *Terraform {
	if config.Binary == "" {
		config.Binary = "terraform"
	}
	if run == nil {
		run = ExecRunner
	}
	return &Terraform{config: config, run: run}
}

type validateOutput struct {
	Valid        bool         `json:"valid"`
	ErrorCount   int          `json:"error_count"`
	WarningCount int          `json:"warning_count"`
	Diagnostics  []diagnostic `json:"diagnostics"`
}

type diagnostic struct {
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Detail   string `json:"detail"`
}

// Validate implements core.Validator.
func (t *Terraform) Validate(ctx context.Context, dir string) core.ValidationOutcome {
	res, err := t.step(ctx, t.config.InitTimeout, dir, "init", "-backend=false", "-input=false", "-no-color")
	if err != nil {
		return core.ValidationOutcome{Message: t.describe("init", t.config.InitTimeout, err), Transient: true}
	}
	// init failures are mostly provider downloads and registry access
	if res.ExitCode != 0 {
		return core.ValidationOutcome{
			Message:   "terraform init failed: " + firstNonEmpty(res.Stderr, res.Stdout),
			Transient: true,
		}
	}

	res, err = t.step(ctx, t.config.ValidateTimeout, dir, "validate", "-json", "-no-color")
	if err != nil {
		return core.ValidationOutcome{Message: t.describe("validate", t.config.ValidateTimeout, err), Transient: true}
	}

	var out validateOutput
	if jsonErr := json.Unmarshal(res.Stdout, &out); jsonErr != nil {
		msg := fmt.Sprintf("undecodable terraform validate output (exit %d)", res.ExitCode)
		if detail := firstNonEmpty(res.Stderr); detail != "" {
			msg += ": " + detail
		}
		return core.ValidationOutcome{Message: msg}
	}

	if out.Valid && res.ExitCode == 0 {
		return core.ValidationOutcome{Passed: true}
	}
	return core.ValidationOutcome{Message: out.errorText(res.ExitCode)}
}

func (t *Terraform) step(ctx context.Context, timeout time.Duration, dir string, args ...string) (CommandResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return t.run(ctx, dir, t.config.Binary, args...)
}

func (t *Terraform) describe(step string, timeout time.Duration, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("terraform %s timed out after %s", step, timeout)
	case isNotFound(err):
		return "terraform not found"
	default:
		return fmt.Sprintf("terraform %s: %v", step, err)
	}
}

func (o validateOutput) errorText(exitCode int) string {
	var lines []string
	for _, d := range o.Diagnostics {
		if d.Severity != "error" {
			continue
		}
		line := d.Summary
		if d.Detail != "" {
			line += ": " + d.Detail
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return fmt.Sprintf("terraform validate reported invalid configuration (exit %d)", exitCode)
	}
	return strings.Join(lines, "; ")
}

func firstNonEmpty(chunks ...[]byte) string {
	for _, c := range chunks {
		if s := strings.TrimSpace(string(c)); s != "" {
			return s
		}
	}
	return ""
}
