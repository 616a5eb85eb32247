// Package evaluator scores one generated artifact set against its ground truth.
package evaluator

import (
	"context"
	"strings"

	"github.com/snow-ghost/skilltune/compare"
	"github.com/snow-ghost/skilltune/core"
)

// maxLintErrors bounds how many lint messages are copied into Errors.
const maxLintErrors = 3

type Evaluator struct {
	validator core.Validator
	linter    core.Linter
	weights   core.CompositeWeights
}

// New creates an evaluator. A nil linter disables linting.
func New(validator core.Validator, linter core.Linter) *Evaluator {
	return &Evaluator{
		validator: validator,
		linter:    linter,
		weights:   core.DefaultCompositeWeights(),
	}
}

// Evaluate validates the materialized artifacts in dir, compares generated
// with expected, and combines both into a composite score.
func (e *Evaluator) Evaluate(ctx context.Context, caseID string, generated, expected core.ArtifactSet, dir string) core.EvaluationResult {
	outcome := e.validator.Validate(ctx, dir)
	cmp := compare.Compare(generated, expected)

	var lint core.LintReport
	if outcome.Passed && e.linter != nil {
		lint = e.linter.Lint(ctx, dir)
	}

	result := core.EvaluationResult{
		CaseID:               caseID,
		ValidatePassed:       outcome.Passed,
		ResourceMatchRate:    core.Clamp01(cmp.ResourceMatchRate),
		ConfigSimilarityRate: core.Clamp01(cmp.ConfigSimilarity),
		Score:                e.weights.Score(outcome.Passed, cmp.ResourceMatchRate, cmp.ConfigSimilarity, lint.Count),
		MissingResources:     cmp.Missing,
		ExtraResources:       cmp.Extra,
		LintWarnings:         lint.Messages,
		Errors:               []string{},
	}

	if !outcome.Passed {
		msg := outcome.Message
		result.ValidateError = &msg
		result.Errors = append(result.Errors, "Validation failed: "+msg)
	}
	if len(cmp.Missing) > 0 {
		result.Errors = append(result.Errors, "Missing resources: "+strings.Join(cmp.Missing, ", "))
	}
	if len(cmp.Extra) > 0 {
		result.Errors = append(result.Errors, "Extra resources: "+strings.Join(cmp.Extra, ", "))
	}
	for i, w := range lint.Messages {
		if i == maxLintErrors {
			break
		}
		result.Errors = append(result.Errors, "Lint: "+w)
	}
	return result
}

// Failed builds the result recorded when a case could not be generated or scored.
func Failed(caseID, prefix string, err error) core.EvaluationResult {
	msg := err.Error()
	return core.EvaluationResult{
		CaseID:        caseID,
		ValidateError: &msg,
		Errors:        []string{prefix + ": " + msg},
	}
}
