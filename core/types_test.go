package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArtifactSetFillsAllKeys(t *testing.T) {
	set := NewArtifactSet(map[ArtifactKey]string{KeyMain: "resource \"a\" \"b\" {}", "extra": "x"})

	require.Len(t, set, 4)
	assert.Equal(t, "resource \"a\" \"b\" {}", set.Main())
	for _, k := range []ArtifactKey{KeyVariables, KeyOutputs, KeyProviders} {
		v, ok := set[k]
		assert.True(t, ok, k)
		assert.Empty(t, v)
	}
	_, ok := set["extra"]
	assert.False(t, ok)
}

func TestArtifactKeyFileName(t *testing.T) {
	assert.Equal(t, "main.tf", KeyMain.FileName())
	assert.Equal(t, "providers.tf", KeyProviders.FileName())
}

func TestTuningIterationJSONKeepsEveryField(t *testing.T) {
	msg := "Error: Unsupported argument"
	it := TuningIteration{
		RunID:            "run-1",
		Iteration:        2,
		AvgScore:         0.72,
		ValidatePassRate: 0.5,
		Results: []EvaluationResult{
			{CaseID: "vpc", ValidatePassed: true, ResourceMatchRate: 1, ConfigSimilarityRate: 0.8, Score: 0.94, Errors: []string{}},
			{CaseID: "ec2", ValidatePassed: false, ValidateError: &msg, ResourceMatchRate: 0.5, Score: 0.1,
				Errors: []string{"Validation failed: " + msg}, MissingResources: []string{"aws_vpc"}},
		},
		SkillUpdates: []string{"pin provider versions"},
		Decision:     "accepted",
		Reason:       "score improved",
		Timestamp:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	b, err := json.Marshal(it)
	require.NoError(t, err)

	var got TuningIteration
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, it, got)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, key := range []string{"iteration", "avg_score", "validate_pass_rate", "results", "skills_updates"} {
		assert.Contains(t, raw, key)
	}
}

func TestValidateTrainingCase(t *testing.T) {
	ok, problems := ValidateTrainingCase(TrainingCase{ID: "a", Request: "vpc", Expected: NewArtifactSet(nil)})
	assert.True(t, ok)
	assert.Empty(t, problems)

	ok, problems = ValidateTrainingCase(TrainingCase{Expected: ArtifactSet{KeyMain: ""}})
	assert.False(t, ok)
	assert.Len(t, problems, 5)
}
