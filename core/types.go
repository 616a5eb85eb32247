package core

import (
	"time"
)

// ArtifactKey names one file of a generated artifact set.
type ArtifactKey string

const (
	KeyMain      ArtifactKey = "main"
	KeyVariables ArtifactKey = "variables"
	KeyOutputs   ArtifactKey = "outputs"
	KeyProviders ArtifactKey = "providers"
)

// ArtifactKeys is the fixed file order used for extraction, hashing and persistence.
var ArtifactKeys = []ArtifactKey{KeyMain, KeyVariables, KeyOutputs, KeyProviders}

// FileName returns the on-disk name of the artifact file.
func (k ArtifactKey) FileName() string {
	return string(k) + ".tf"
}

// ArtifactSet maps each of the four keys to file content.
type ArtifactSet map[ArtifactKey]string

// NewArtifactSet returns a set with all four keys present.
// Missing entries in files are filled with the empty string; unknown keys are dropped.
func NewArtifactSet(files map[ArtifactKey]string) ArtifactSet {
	set := make(ArtifactSet, len(ArtifactKeys))
	for _, k := range ArtifactKeys {
		set[k] = files[k]
	}
	return set
}

// Main returns the primary configuration file.
func (s ArtifactSet) Main() string { return s[KeyMain] }

type TrainingCase struct {
	ID       string
	Source   string
	Request  string      // free-text infrastructure request
	Expected ArtifactSet // ground truth
	Tags     []string
}

type EvaluationResult struct {
	CaseID               string   `json:"data_id"`
	ValidatePassed       bool     `json:"validate_passed"`
	ValidateError        *string  `json:"validate_error"`
	ResourceMatchRate    float64  `json:"resource_match_rate"`
	ConfigSimilarityRate float64  `json:"config_match_rate"`
	Score                float64  `json:"overall_score"`
	Errors               []string `json:"errors"`

	// Structured copies of what Errors reports, kept for aggregation.
	MissingResources []string `json:"missing_resources,omitempty"`
	ExtraResources   []string `json:"extra_resources,omitempty"`
	LintWarnings     []string `json:"lint_warnings,omitempty"`
}

// ValidationMessage returns the validation error text or "".
func (r EvaluationResult) ValidationMessage() string {
	if r.ValidateError == nil {
		return ""
	}
	return *r.ValidateError
}

type ValidationFailure struct {
	CaseID  string `json:"data_id"`
	Message string `json:"error"`
}

type ResourceCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type CaseScore struct {
	CaseID string  `json:"data_id"`
	Score  float64 `json:"score"`
}

// ErrorAnalysis aggregates recurring defects across one batch of results.
type ErrorAnalysis struct {
	ValidationErrors []ValidationFailure `json:"validation_errors"`
	MissingResources []ResourceCount     `json:"missing_resources"`
	ExtraResources   []ResourceCount     `json:"extra_resources"`
	LintWarnings     []string            `json:"lint_warnings"`
	LowScoreCases    []CaseScore         `json:"low_score_cases"`
	HighScoreCases   []CaseScore         `json:"high_score_cases"`
}

// HasDefects reports whether a skill revision could address anything.
func (a ErrorAnalysis) HasDefects() bool {
	return len(a.ValidationErrors) > 0 || len(a.MissingResources) > 0 || len(a.LowScoreCases) > 0
}

// Checkpoint is the best accepted skill revision and the performance it earned.
// It is replaced as a whole, never edited.
type Checkpoint struct {
	Skill            string  `json:"skill"`
	Score            float64 `json:"score"`
	ValidatePassRate float64 `json:"validate_pass_rate"`
	Iteration        int     `json:"iteration"`
}

type TuningIteration struct {
	RunID            string             `json:"run_id"`
	Iteration        int                `json:"iteration"`
	AvgScore         float64            `json:"avg_score"`
	ValidatePassRate float64            `json:"validate_pass_rate"`
	Results          []EvaluationResult `json:"results"`
	SkillUpdates     []string           `json:"skills_updates"`
	Decision         string             `json:"decision"`
	Reason           string             `json:"reason"`
	Timestamp        time.Time          `json:"timestamp"`
}
