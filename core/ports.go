package core

import "context"

// Generator turns a request and the active skill into raw completion text
// carrying the four marker-delimited sections.
type Generator interface {
	Generate(ctx context.Context, request, skill string) (string, error)
}

// Reviser asks for a revised skill given the defects observed in a batch.
// The raw text is parsed by the caller.
type Reviser interface {
	Revise(ctx context.Context, skill string, analysis ErrorAnalysis) (string, error)
}

// ValidationOutcome is the verdict on one artifact directory. Transient marks
// failures caused by the environment rather than the artifact; they must not
// be remembered across calls.
type ValidationOutcome struct {
	Passed    bool
	Message   string
	Transient bool
}

type LintReport struct {
	Count    int
	Messages []string // "rule: message"
}

// Validator checks a materialized artifact directory. Implementations fail
// closed and never return tool errors to the caller.
type Validator interface {
	Validate(ctx context.Context, dir string) ValidationOutcome
}

// Linter is best effort; an unavailable tool yields an empty report.
type Linter interface {
	Lint(ctx context.Context, dir string) LintReport
}

type ArtifactStore interface {
	Save(iteration int, caseID string, set ArtifactSet) (dir string, err error)
}

type SkillStore interface {
	Load() (string, error)
	Save(skill string) error
	Backup(iteration int) (path string, err error)
}

type HistoryStore interface {
	Append(ctx context.Context, it TuningIteration) error
	List(ctx context.Context, runID string) ([]TuningIteration, error)
}
