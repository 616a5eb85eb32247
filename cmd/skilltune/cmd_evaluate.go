package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/history"
)

var evaluateFlags struct {
	generated string
	expected  string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a generated artifact directory against an expected one",
	RunE:  runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.StringVar(&evaluateFlags.generated, "generated", "", "Directory holding the generated .tf files (required)")
	f.StringVar(&evaluateFlags.expected, "expected", "", "Directory holding the expected .tf files (required)")

	_ = evaluateCmd.MarkFlagRequired("generated")
	_ = evaluateCmd.MarkFlagRequired("expected")
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	generated, err := artifact.ReadSet(evaluateFlags.generated)
	if err != nil {
		return fmt.Errorf("read generated: %w", err)
	}
	expected, err := artifact.ReadSet(evaluateFlags.expected)
	if err != nil {
		return fmt.Errorf("read expected: %w", err)
	}

	obs, _, err := newObservability(cfg)
	if err != nil {
		return err
	}
	defer shutdown(obs)

	eval, err := newEvaluator(cfg, obs)
	if err != nil {
		return err
	}
	caseID := filepath.Base(filepath.Clean(evaluateFlags.generated))
	result := eval.Evaluate(cmd.Context(), caseID, generated, expected, evaluateFlags.generated)

	out := cmd.OutOrStdout()
	history.ResultsTable(out, []core.EvaluationResult{result})
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  - %s\n", e)
	}
	return nil
}
