package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/snow-ghost/skilltune/core"
)

func failing(id, msg string, score float64) core.EvaluationResult {
	return core.EvaluationResult{CaseID: id, ValidateError: &msg, Score: score}
}

func TestAnalyze(t *testing.T) {
	r1 := failing("c1", "Unsupported argument", 0.2)
	r1.MissingResources = []string{"aws_subnet", "aws_nat_gateway"}
	r1.ExtraResources = []string{"aws_eip"}

	r2 := core.EvaluationResult{CaseID: "c2", ValidatePassed: true, Score: 0.7,
		MissingResources: []string{"aws_nat_gateway"},
		LintWarnings:     []string{"terraform_typed_variables: no type"}}

	r3 := core.EvaluationResult{CaseID: "c3", ValidatePassed: true, Score: 0.8,
		MissingResources: []string{"aws_route_table"},
		LintWarnings:     []string{"terraform_unused_declarations: x"}}

	got := Analyze([]core.EvaluationResult{r1, r2, r3})

	want := core.ErrorAnalysis{
		ValidationErrors: []core.ValidationFailure{{CaseID: "c1", Message: "Unsupported argument"}},
		MissingResources: []core.ResourceCount{
			{Type: "aws_nat_gateway", Count: 2},
			{Type: "aws_subnet", Count: 1},
			{Type: "aws_route_table", Count: 1},
		},
		ExtraResources: []core.ResourceCount{{Type: "aws_eip", Count: 1}},
		LintWarnings: []string{
			"terraform_typed_variables: no type",
			"terraform_unused_declarations: x",
		},
		LowScoreCases:  []core.CaseScore{{CaseID: "c1", Score: 0.2}},
		HighScoreCases: []core.CaseScore{{CaseID: "c3", Score: 0.8}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got.HasDefects())
}

func TestAnalyzeThresholdBoundaries(t *testing.T) {
	got := Analyze([]core.EvaluationResult{
		{CaseID: "a", ValidatePassed: true, Score: 0.6},
		{CaseID: "b", ValidatePassed: true, Score: 0.5999},
		{CaseID: "c", ValidatePassed: true, Score: 0.7999},
	})
	assert.Equal(t, []core.CaseScore{{CaseID: "b", Score: 0.5999}}, got.LowScoreCases)
	assert.Empty(t, got.HighScoreCases)
}

func TestAnalyzeNoDefects(t *testing.T) {
	got := Analyze([]core.EvaluationResult{
		{CaseID: "a", ValidatePassed: true, Score: 0.9, ExtraResources: []string{"aws_eip"}},
		{CaseID: "b", ValidatePassed: true, Score: 0.65, LintWarnings: []string{"r: m"}},
	})
	assert.False(t, got.HasDefects())
	assert.Len(t, got.ExtraResources, 1)

	assert.False(t, Analyze(nil).HasDefects())
}

func TestRender(t *testing.T) {
	a := core.ErrorAnalysis{
		ValidationErrors: []core.ValidationFailure{{CaseID: "c1", Message: "Unsupported\n  argument"}},
		MissingResources: []core.ResourceCount{{Type: "aws_subnet", Count: 2}},
		LowScoreCases:    []core.CaseScore{{CaseID: "c1", Score: 0.25}},
	}
	out := Render(a)

	assert.Contains(t, out, "### Validation errors\n- c1: Unsupported argument\n")
	assert.Contains(t, out, "### Missing resources\n- aws_subnet (2 cases)\n")
	assert.Contains(t, out, "### Extra resources\nnone\n")
	assert.Contains(t, out, "### Low-score cases\n- c1: 0.25\n")
	assert.Contains(t, out, "### High-score cases\nnone\n")
}
