package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/llm"
	"github.com/snow-ghost/skilltune/pkg/observability"
	"github.com/snow-ghost/skilltune/skills"
)

var generateFlags struct {
	outDir   string
	validate bool
}

var generateCmd = &cobra.Command{
	Use:   "generate <request>",
	Short: "Generate Terraform for one request with the current skill",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.outDir, "out", "", "Write main.tf, variables.tf, outputs.tf and providers.tf here")
	f.BoolVar(&generateFlags.validate, "validate", false, "Run terraform validate and tflint on the result (requires --out)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateFlags.validate && generateFlags.outDir == "" {
		return fmt.Errorf("--validate requires --out")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	skill, err := skills.NewFileStore(cfg.SkillPath).Load()
	if err != nil {
		return err
	}

	obs, _, err := newObservability(cfg)
	if err != nil {
		return err
	}
	defer shutdown(obs)

	ledger, err := newLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	completer, err := newCompleter(cfg, ledger, obs)
	if err != nil {
		return err
	}

	ctx := observability.WithRunID(cmd.Context(), "generate")
	raw, err := llm.NewGenerator(completer).Generate(ctx, strings.Join(args, " "), skill)
	if err != nil {
		return err
	}

	ex := artifact.Extract(raw)
	out := cmd.OutOrStdout()
	for _, k := range ex.Missing() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s missing from completion\n", k.FileName())
	}

	if generateFlags.outDir == "" {
		fmt.Fprint(out, artifact.Render(ex.Set, artifact.DefaultMarkers))
		return nil
	}
	if err := artifact.WriteSet(generateFlags.outDir, ex.Set); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote artifacts to %s\n", generateFlags.outDir)

	if !generateFlags.validate {
		return nil
	}
	eval, err := newEvaluator(cfg, obs)
	if err != nil {
		return err
	}
	// Without ground truth only validation and lint are meaningful.
	result := eval.Evaluate(cmd.Context(), "generate", ex.Set, ex.Set, generateFlags.outDir)
	if result.ValidatePassed {
		fmt.Fprintln(out, "Validation: passed")
	} else {
		fmt.Fprintf(out, "Validation: failed: %s\n", result.ValidationMessage())
	}
	for _, w := range result.LintWarnings {
		fmt.Fprintf(out, "Lint: %s\n", w)
	}
	return nil
}
