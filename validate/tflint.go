package validate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/snow-ghost/skilltune/core"
)

// TFLintConfig holds the tflint adapter settings
type TFLintConfig struct {
	Binary  string        `yaml:"binary"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultTFLintConfig returns the default tflint settings
func DefaultTFLintConfig() TFLintConfig {
	return TFLintConfig{Binary: "tflint", Timeout: 60 * time.Second}
}

// TFLint is a best-effort core.Linter. Any failure to run or decode tflint
// yields an empty report.
type TFLint struct {
	config TFLintConfig
	run    CommandRunner
}

func NewTFLint(config TFLintConfig, run CommandRunner) *TFLint {
	if config.Binary == "" {
		config.Binary = "tflint"
	}
	if run == nil {
		run = ExecRunner
	}
	return &TFLint{config: config, run: run}
}

type tflintOutput struct {
	Issues []struct {
		Rule struct {
			Name     string `json:"name"`
			Severity string `json:"severity"`
		} `json:"rule"`
		Message string `json:"message"`
	} `json:"issues"`
}

// Lint implements core.Linter.
func (l *TFLint) Lint(ctx context.Context, dir string) core.LintReport {
	if l.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.Timeout)
		defer cancel()
	}

	// tflint exits non-zero when it finds issues, so only the payload matters.
	res, err := l.run(ctx, dir, l.config.Binary, "--format", "json", "--no-color")
	if err != nil {
		return core.LintReport{}
	}
	var out tflintOutput
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		return core.LintReport{}
	}

	report := core.LintReport{Count: len(out.Issues)}
	for _, is := range out.Issues {
		report.Messages = append(report.Messages, is.Rule.Name+": "+is.Message)
	}
	return report
}
