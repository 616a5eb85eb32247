// Package tuner runs the adaptive tuning loop: it scores a batch of
// generations per iteration, keeps the best skill as a checkpoint, rolls back
// on regression and asks for a revised skill after accepted iterations.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/snow-ghost/skilltune/analysis"
	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/evaluator"
	"github.com/snow-ghost/skilltune/pkg/observability"
	"github.com/snow-ghost/skilltune/pkg/tracing"
	"github.com/snow-ghost/skilltune/skills"
)

// Case boundary stages, used as error prefixes and metric labels.
const (
	stageGeneration = "generation"
	stageEvaluation = "evaluation"
)

// Config holds tuning loop configuration
type Config struct {
	MaxIterations     int           `yaml:"max_iterations"`
	Target            float64       `yaml:"target"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
}

// DefaultConfig returns the default loop configuration
func DefaultConfig() Config {
	return Config{
		MaxIterations:     5,
		Target:            0.85,
		GenerationTimeout: 5 * time.Minute,
	}
}

// Validate checks the loop bounds
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.Target <= 0 || c.Target > 1 {
		return fmt.Errorf("target must be in (0, 1], got %g", c.Target)
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("generation timeout must be positive, got %s", c.GenerationTimeout)
	}
	return nil
}

// Scorer scores one generated artifact set. *evaluator.Evaluator implements it.
type Scorer interface {
	Evaluate(ctx context.Context, caseID string, generated, expected core.ArtifactSet, dir string) core.EvaluationResult
}

// Deps are the collaborators of a Tuner. Obs is optional.
type Deps struct {
	Corpus    []core.TrainingCase
	Generator core.Generator
	Reviser   core.Reviser
	Scorer    Scorer
	Skills    core.SkillStore
	Artifacts core.ArtifactStore
	History   core.HistoryStore
	Obs       *observability.Manager
}

// Report summarizes a finished run
type Report struct {
	RunID      string
	FinalState State
	Best       core.Checkpoint
	Iterations []core.TuningIteration
}

// Tuner owns the active skill and the best checkpoint for one run.
type Tuner struct {
	config Config
	deps   Deps
	critic *core.CheckpointCritic
	obs    *observability.Manager

	onIteration func(core.TuningIteration)
	now         func() time.Time
	newRunID    func() string
}

// New validates config and deps and creates a tuner
func New(config Config, deps Deps) (*Tuner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(deps.Corpus) == 0 {
		return nil, errors.New("tuner needs at least one training case")
	}
	if deps.Generator == nil || deps.Reviser == nil || deps.Scorer == nil ||
		deps.Skills == nil || deps.Artifacts == nil || deps.History == nil {
		return nil, errors.New("tuner dependencies are incomplete")
	}

	obs := deps.Obs
	if obs == nil {
		obs = observability.NewNop()
	}
	return &Tuner{
		config:   config,
		deps:     deps,
		critic:   core.NewCheckpointCritic(),
		obs:      obs,
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}, nil
}

// OnIteration registers a hook called after each iteration is persisted
func (t *Tuner) OnIteration(hook func(core.TuningIteration)) {
	t.onIteration = hook
}

// run is the mutable state of one Run call
type run struct {
	id         string
	iteration  int
	best       *core.Checkpoint
	iterations []core.TuningIteration
	state      State
}

// Run executes up to MaxIterations batches. The best checkpoint's skill is
// written back as the active skill on every return path once one exists.
func (t *Tuner) Run(ctx context.Context) (report Report, err error) {
	r := &run{id: t.newRunID(), state: StateRunning}
	ctx = observability.WithRunID(ctx, r.id)
	ctx, span := t.obs.GetTracer().StartRunSpan(ctx, r.id, t.config.MaxIterations, t.config.Target)
	defer span.End()

	log := t.obs.GetLogger().WithRunID(r.id)
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		log = log.WithTraceID(ctx, traceID)
	}
	obs := t.obs.WithLogger(log)

	defer func() {
		if r.best != nil {
			if ferr := t.restoreBest(r.best); ferr != nil && err == nil {
				err = ferr
			}
			report.Best = *r.best
		}
		report.RunID = r.id
		report.FinalState = r.state
		report.Iterations = r.iterations
		if err != nil {
			tracing.RecordSpanError(span, err)
		} else {
			tracing.RecordSpanSuccess(span)
		}
	}()

	log.Info("Tuning run started", "cases", len(t.deps.Corpus), "max_iterations", t.config.MaxIterations, "target", t.config.Target)

	for i := 1; i <= t.config.MaxIterations; i++ {
		r.iteration = i
		it, err := t.iterate(ctx, obs, r)
		if err != nil {
			return report, err
		}

		if err := t.deps.History.Append(ctx, it); err != nil {
			return report, fmt.Errorf("failed to persist iteration %d: %w", i, err)
		}
		r.iterations = append(r.iterations, it)
		if t.onIteration != nil {
			t.onIteration(it)
		}

		if r.state.Terminal() {
			break
		}
	}

	if !r.state.Terminal() {
		r.state = StateExhausted
		log.Info("Tuning run exhausted", "iterations", t.config.MaxIterations, "best_score", r.best.Score)
	}
	return report, nil
}

// iterate runs one batch and applies the acceptance, regression, termination
// and mutation rules in that order.
func (t *Tuner) iterate(ctx context.Context, obs *observability.Manager, r *run) (core.TuningIteration, error) {
	start := time.Now()
	ctx, span := obs.GetTracer().StartIterationSpan(ctx, r.iteration)
	defer span.End()

	active, err := t.deps.Skills.Load()
	if err != nil {
		tracing.RecordSpanError(span, err)
		return core.TuningIteration{}, fmt.Errorf("failed to load skill for iteration %d: %w", r.iteration, err)
	}

	results := make([]core.EvaluationResult, 0, len(t.deps.Corpus))
	for _, tc := range t.deps.Corpus {
		if err := ctx.Err(); err != nil {
			return core.TuningIteration{}, fmt.Errorf("iteration %d interrupted: %w", r.iteration, err)
		}
		results = append(results, t.runCase(ctx, obs, r.iteration, tc, active))
	}
	if err := ctx.Err(); err != nil {
		return core.TuningIteration{}, fmt.Errorf("iteration %d interrupted: %w", r.iteration, err)
	}

	stats := core.Summarize(results)
	it := core.TuningIteration{
		RunID:            r.id,
		Iteration:        r.iteration,
		AvgScore:         stats.AvgScore,
		ValidatePassRate: stats.ValidatePassRate,
		Results:          results,
		SkillUpdates:     []string{},
		Timestamp:        t.now(),
	}

	switch {
	case t.critic.Regressed(r.best, stats):
		it.Decision, it.Reason = DecisionRolledBack, "validate pass rate regressed"
		if err := t.rollback(active, r.best); err != nil {
			return it, err
		}

	default:
		accepted, reason := t.critic.Accept(r.best, stats)
		it.Reason = reason
		if accepted {
			r.best = &core.Checkpoint{
				Skill:            active,
				Score:            stats.AvgScore,
				ValidatePassRate: stats.ValidatePassRate,
				Iteration:        r.iteration,
			}
			obs.GetMetrics().RecordBestScore(stats.AvgScore)
		}

		switch {
		case t.critic.TargetMet(stats, t.config.Target):
			it.Decision = DecisionTargetMet
		case !accepted:
			it.Decision = DecisionSkipped
		case r.iteration == t.config.MaxIterations:
			it.Decision = DecisionAccepted
			it.Reason += "; " + ReasonLastIteration
		default:
			it.Decision = DecisionAccepted
			updates, note, err := t.mutate(ctx, obs, r.iteration, active, results)
			if err != nil {
				return it, err
			}
			it.SkillUpdates = updates
			if note != "" {
				it.Reason += "; " + note
			}
		}
	}

	r.state = stateFor(it.Decision)
	obs.RecordIteration(ctx, r.iteration, len(results), stats.AvgScore, stats.ValidatePassRate, it.Decision, it.Reason)
	tracing.AddSpanAttributes(span, map[string]interface{}{
		"tune.avg_score":          stats.AvgScore,
		"tune.validate_pass_rate": stats.ValidatePassRate,
		"tune.decision":           it.Decision,
	})
	tracing.RecordSpanDuration(span, time.Since(start))
	return it, nil
}

// runCase generates and scores one case. Errors and panics become a failing
// result so one case cannot abort the batch.
func (t *Tuner) runCase(ctx context.Context, obs *observability.Manager, iteration int, tc core.TrainingCase, skill string) (result core.EvaluationResult) {
	start := time.Now()
	ctx, span := obs.GetTracer().StartCaseSpan(ctx, iteration, tc.ID)
	defer span.End()

	stage := stageGeneration
	fail := func(err error) core.EvaluationResult {
		obs.RecordCaseFailure(ctx, iteration, tc.ID, stage, err)
		tracing.RecordSpanError(span, err)
		prefix := "Generation failed"
		if stage == stageEvaluation {
			prefix = "Evaluation failed"
		}
		return evaluator.Failed(tc.ID, prefix, err)
	}
	defer func() {
		if p := recover(); p != nil {
			result = fail(fmt.Errorf("panic: %v", p))
		}
		obs.RecordCase(ctx, iteration, tc.ID, result.Score, result.ValidatePassed, time.Since(start))
	}()

	raw, err := t.generate(ctx, tc.Request, skill)
	if err != nil {
		return fail(err)
	}

	stage = stageEvaluation
	ex := artifact.Extract(raw)
	if !ex.Complete() {
		missing := make([]string, 0, len(ex.Missing()))
		for _, k := range ex.Missing() {
			missing = append(missing, string(k))
		}
		obs.RecordExtraction(ctx, tc.ID, missing)
	}

	dir, err := t.deps.Artifacts.Save(iteration, tc.ID, ex.Set)
	if err != nil {
		return fail(err)
	}
	return t.deps.Scorer.Evaluate(ctx, tc.ID, ex.Set, tc.Expected, dir)
}

func (t *Tuner) generate(ctx context.Context, request, skill string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.GenerationTimeout)
	defer cancel()
	return t.deps.Generator.Generate(ctx, request, skill)
}

// rollback restores the checkpoint skill. Saving is skipped when the active
// skill already equals it.
func (t *Tuner) rollback(active string, best *core.Checkpoint) error {
	if active == best.Skill {
		return nil
	}
	if err := t.deps.Skills.Save(best.Skill); err != nil {
		return fmt.Errorf("failed to roll back skill to iteration %d: %w", best.Iteration, err)
	}
	return nil
}

// mutate backs up the active skill and replaces it with a revision built from
// the batch analysis. It returns the applied updates and a note for the reason.
func (t *Tuner) mutate(ctx context.Context, obs *observability.Manager, iteration int, active string, results []core.EvaluationResult) ([]string, string, error) {
	metrics := obs.GetMetrics()
	log := obs.GetLogger()

	if _, err := t.deps.Skills.Backup(iteration); err != nil {
		return nil, "", fmt.Errorf("failed to back up skill at iteration %d: %w", iteration, err)
	}

	a := analysis.Analyze(results)
	if !a.HasDefects() {
		metrics.RecordSkillRevision("skipped")
		return []string{}, ReasonNoDefects, nil
	}

	raw, err := t.deps.Reviser.Revise(ctx, active, a)
	if err != nil {
		metrics.RecordSkillRevision("error")
		log.Warn("Skill revision failed", "iteration", iteration, "error", err)
		return []string{ReasonRevisionError + ": " + err.Error()}, "", nil
	}

	rev := skills.ParseRevision(raw, active)
	metrics.RecordSkillRevision(rev.Kind.String())
	if rev.Kind == skills.Fallback {
		log.Warn("Skill revision carried no skill markers", "iteration", iteration)
		return rev.Updates, "", nil
	}

	if err := t.deps.Skills.Save(rev.Skill); err != nil {
		return nil, "", fmt.Errorf("failed to save revised skill at iteration %d: %w", iteration, err)
	}
	log.Info("Skill revised", "iteration", iteration, "updates", len(rev.Updates))
	return rev.Updates, "", nil
}

// restoreBest writes the checkpoint skill back unless it is already active.
func (t *Tuner) restoreBest(best *core.Checkpoint) error {
	active, err := t.deps.Skills.Load()
	if err == nil && active == best.Skill {
		return nil
	}
	if err := t.deps.Skills.Save(best.Skill); err != nil {
		return fmt.Errorf("failed to write best skill from iteration %d: %w", best.Iteration, err)
	}
	return nil
}
