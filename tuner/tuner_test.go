package tuner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/pkg/logging"
	"github.com/snow-ghost/skilltune/pkg/metrics"
	"github.com/snow-ghost/skilltune/pkg/observability"
	"github.com/snow-ghost/skilltune/pkg/tracing"
	"github.com/snow-ghost/skilltune/skills"
	"github.com/snow-ghost/skilltune/testkit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// tableScorer scores by the generated main file. Unknown mains fail with score 0.
type tableScorer map[string]core.EvaluationResult

func (s tableScorer) Evaluate(ctx context.Context, caseID string, generated, expected core.ArtifactSet, dir string) core.EvaluationResult {
	r, ok := s[generated.Main()]
	if !ok {
		msg := "unknown artifact"
		return core.EvaluationResult{CaseID: caseID, ValidateError: &msg, Errors: []string{"Validation failed: " + msg}}
	}
	r.CaseID = caseID
	return r
}

func passed(score float64) core.EvaluationResult {
	return core.EvaluationResult{ValidatePassed: true, Score: score, Errors: []string{}}
}

func failed(score float64) core.EvaluationResult {
	msg := "invalid block"
	return core.EvaluationResult{Score: score, ValidateError: &msg, Errors: []string{"Validation failed: " + msg}}
}

// completion renders a completion whose main file is main.
func completion(main string) string {
	return testkit.Completion(testkit.Set(main))
}

var corpus = []core.TrainingCase{
	testkit.Case("a", "vpc", testkit.Resource("aws_vpc", "main")),
	testkit.Case("b", "bucket", testkit.Resource("aws_s3_bucket", "logs")),
}

type harness struct {
	generator core.Generator
	reviser   *testkit.ScriptedReviser
	scorer    Scorer
	skills    *testkit.MemorySkillStore
	history   *testkit.MemoryHistory
	artifacts core.ArtifactStore
	config    Config
}

func newHarness(t *testing.T, generator core.Generator, scorer Scorer, replies ...string) *harness {
	t.Helper()
	cfg := DefaultConfig()
	return &harness{
		generator: generator,
		reviser:   testkit.NewScriptedReviser(replies...),
		scorer:    scorer,
		skills:    testkit.NewMemorySkillStore("v1"),
		history:   &testkit.MemoryHistory{},
		artifacts: artifact.NewFSStore(t.TempDir()),
		config:    cfg,
	}
}

func (h *harness) tuner(t *testing.T, obs *observability.Manager) *Tuner {
	t.Helper()
	tu, err := New(h.config, Deps{
		Corpus:    corpus,
		Generator: h.generator,
		Reviser:   h.reviser,
		Scorer:    h.scorer,
		Skills:    h.skills,
		Artifacts: h.artifacts,
		History:   h.history,
		Obs:       obs,
	})
	require.NoError(t, err)
	return tu
}

func (h *harness) run(t *testing.T) Report {
	t.Helper()
	report, err := h.tuner(t, nil).Run(context.Background())
	require.NoError(t, err)
	return report
}

func decisions(its []core.TuningIteration) []string {
	out := make([]string, len(its))
	for i, it := range its {
		out[i] = it.Decision
	}
	return out
}

func TestTargetMetOnFirstIteration(t *testing.T) {
	gen := testkit.SkillGenerator{"v1": {"vpc": completion("good-a"), "bucket": completion("good-b")}}
	h := newHarness(t, gen, tableScorer{"good-a": passed(0.9), "good-b": passed(0.95)})

	report := h.run(t)

	assert.Equal(t, StateTargetMet, report.FinalState)
	assert.Equal(t, []string{DecisionTargetMet}, decisions(report.Iterations))
	assert.Equal(t, "baseline", report.Iterations[0].Reason)
	assert.InDelta(t, 0.925, report.Best.Score, 1e-9)
	assert.Equal(t, 1, report.Best.Iteration)
	assert.Empty(t, h.reviser.Calls)
	assert.Empty(t, h.skills.Backups)
	assert.Empty(t, h.skills.Saves)
	assert.Equal(t, "v1", h.skills.Current())
	assert.Equal(t, report.Iterations, h.history.Iterations)
	assert.NotEmpty(t, report.RunID)
}

func TestAcceptedIterationRevisesSkill(t *testing.T) {
	gen := testkit.SkillGenerator{
		"v1": {"vpc": completion("weak-a"), "bucket": completion("ok-b")},
		"v2": {"vpc": completion("good-a"), "bucket": completion("good-b")},
	}
	scorer := tableScorer{
		"weak-a": passed(0.56), "ok-b": passed(0.7),
		"good-a": passed(0.9), "good-b": passed(0.9),
	}
	h := newHarness(t, gen, scorer, testkit.Revision("v2", "add tags to every resource"))

	report := h.run(t)

	require.Len(t, report.Iterations, 2)
	first := report.Iterations[0]
	assert.InDelta(t, 0.63, first.AvgScore, 1e-9)
	assert.Equal(t, 1.0, first.ValidatePassRate)
	assert.Equal(t, DecisionAccepted, first.Decision)
	assert.Equal(t, []string{"add tags to every resource"}, first.SkillUpdates)

	require.Len(t, h.reviser.Calls, 1)
	call := h.reviser.Calls[0]
	assert.Equal(t, "v1", call.Skill)
	require.Len(t, call.Analysis.LowScoreCases, 1)
	assert.Equal(t, "a", call.Analysis.LowScoreCases[0].CaseID)

	assert.Equal(t, DecisionTargetMet, report.Iterations[1].Decision)
	assert.Equal(t, "score improved", report.Iterations[1].Reason)
	assert.Equal(t, StateTargetMet, report.FinalState)
	assert.Equal(t, []int{1}, h.skills.Backups)
	assert.Equal(t, []string{"v2"}, h.skills.Saves)
	assert.Equal(t, "v2", report.Best.Skill)
	assert.Equal(t, 2, report.Best.Iteration)
}

func TestPassRateImprovementIsAcceptedDespiteLowerScore(t *testing.T) {
	gen := testkit.SkillGenerator{
		"v1": {"vpc": completion("great-a"), "bucket": completion("broken-b")},
		"v2": {"vpc": completion("plain-a"), "bucket": completion("plain-b")},
	}
	scorer := tableScorer{
		"great-a": passed(0.9), "broken-b": failed(0.3),
		"plain-a": passed(0.55), "plain-b": passed(0.55),
	}
	h := newHarness(t, gen, scorer, testkit.Revision("v2", "declare every bucket"))
	h.config.MaxIterations = 2

	report := h.run(t)

	require.Len(t, report.Iterations, 2)
	assert.InDelta(t, 0.6, report.Iterations[0].AvgScore, 1e-9)
	assert.Equal(t, 0.5, report.Iterations[0].ValidatePassRate)

	second := report.Iterations[1]
	assert.Equal(t, DecisionAccepted, second.Decision)
	assert.Equal(t, "validate pass rate improved; "+ReasonLastIteration, second.Reason)
	assert.Empty(t, second.SkillUpdates)

	assert.Equal(t, StateExhausted, report.FinalState)
	assert.Equal(t, "v2", report.Best.Skill)
	assert.InDelta(t, 0.55, report.Best.Score, 1e-9)
	assert.Equal(t, 1.0, report.Best.ValidatePassRate)
	assert.Len(t, h.reviser.Calls, 1)
	assert.Equal(t, []int{1}, h.skills.Backups)
}

func TestRegressionRestoresBestSkill(t *testing.T) {
	gen := testkit.SkillGenerator{
		"v1": {"vpc": completion("low-a"), "bucket": completion("low-b")},
		"v2": {"vpc": completion("low-a"), "bucket": completion("broken-b")},
	}
	scorer := tableScorer{"low-a": passed(0.5), "low-b": passed(0.5), "broken-b": failed(0.1)}
	h := newHarness(t, gen, scorer, testkit.Revision("v2", "rename buckets"))
	h.config.MaxIterations = 3

	report := h.run(t)

	assert.Equal(t, []string{DecisionAccepted, DecisionRolledBack, DecisionSkipped}, decisions(report.Iterations))
	rolled := report.Iterations[1]
	assert.Equal(t, "validate pass rate regressed", rolled.Reason)
	assert.Empty(t, rolled.SkillUpdates)
	assert.Equal(t, "not improved", report.Iterations[2].Reason)

	assert.Len(t, h.reviser.Calls, 1)
	assert.Equal(t, []int{1}, h.skills.Backups)
	assert.Equal(t, []string{"v2", "v1"}, h.skills.Saves)
	assert.Equal(t, "v1", h.skills.Current())
	assert.Equal(t, StateExhausted, report.FinalState)
	assert.Equal(t, 1, report.Best.Iteration)
}

func TestRollbackIsIdempotent(t *testing.T) {
	gen := testkit.NewScriptedGenerator(
		[]string{completion("fine-a"), completion("fine-b")},
		[]string{completion("fine-a"), completion("broken-b")},
	)
	scorer := tableScorer{"fine-a": passed(0.7), "fine-b": passed(0.7), "broken-b": failed(0.2)}
	h := newHarness(t, gen, scorer)
	h.config.MaxIterations = 2

	report := h.run(t)

	require.Len(t, report.Iterations, 2)
	assert.Equal(t, "baseline; "+ReasonNoDefects, report.Iterations[0].Reason)
	assert.Equal(t, DecisionRolledBack, report.Iterations[1].Decision)
	assert.Empty(t, h.reviser.Calls)
	assert.Equal(t, []int{1}, h.skills.Backups)
	assert.Empty(t, h.skills.Saves)
	assert.Equal(t, "v1", h.skills.Current())
}

func TestUnimprovedSkillIsDiscardedAtRunEnd(t *testing.T) {
	gen := testkit.SkillGenerator{
		"v1": {"vpc": completion("low-a"), "bucket": completion("low-b")},
		"v2": {"vpc": completion("low-a"), "bucket": completion("low-b")},
	}
	scorer := tableScorer{"low-a": passed(0.5), "low-b": passed(0.5)}
	h := newHarness(t, gen, scorer, testkit.Revision("v2", "reword"))
	h.config.MaxIterations = 2

	report := h.run(t)

	assert.Equal(t, []string{DecisionAccepted, DecisionSkipped}, decisions(report.Iterations))
	assert.Empty(t, report.Iterations[1].SkillUpdates)
	assert.Equal(t, []string{"v2", "v1"}, h.skills.Saves)
	assert.Equal(t, "v1", h.skills.Current())
	assert.Equal(t, "v1", report.Best.Skill)
}

func TestRevisionWithoutMarkersKeepsSkill(t *testing.T) {
	gen := testkit.SkillGenerator{"v1": {"vpc": completion("low-a"), "bucket": completion("low-b")}}
	scorer := tableScorer{"low-a": passed(0.5), "low-b": passed(0.5)}
	h := newHarness(t, gen, scorer, "I would rather not.")
	h.config.MaxIterations = 2

	report := h.run(t)

	assert.Equal(t, []string{skills.FallbackUpdate}, report.Iterations[0].SkillUpdates)
	assert.Empty(t, h.skills.Saves)
	assert.Equal(t, "v1", h.skills.Current())
}

func TestRevisionErrorIsRecorded(t *testing.T) {
	gen := testkit.SkillGenerator{"v1": {"vpc": completion("low-a"), "bucket": completion("low-b")}}
	scorer := tableScorer{"low-a": passed(0.5), "low-b": passed(0.5)}
	h := newHarness(t, gen, scorer)
	h.config.MaxIterations = 2

	report := h.run(t)

	require.Len(t, report.Iterations[0].SkillUpdates, 1)
	assert.True(t, strings.HasPrefix(report.Iterations[0].SkillUpdates[0], ReasonRevisionError+": "))
	assert.Len(t, h.reviser.Calls, 1)
	assert.Equal(t, "v1", h.skills.Current())
}

func TestCaseFailuresAreContained(t *testing.T) {
	gen := testkit.GeneratorFunc(func(ctx context.Context, request, skill string) (string, error) {
		switch request {
		case "vpc":
			return "", errors.New("model unavailable")
		default:
			panic("tokenizer exploded")
		}
	})
	h := newHarness(t, gen, tableScorer{})
	h.config.MaxIterations = 1

	report := h.run(t)

	require.Len(t, report.Iterations, 1)
	results := report.Iterations[0].Results
	require.Len(t, results, 2)
	assert.Equal(t, []string{"Generation failed: model unavailable"}, results[0].Errors)
	assert.Equal(t, []string{"Generation failed: panic: tokenizer exploded"}, results[1].Errors)
	for _, r := range results {
		assert.Zero(t, r.Score)
		assert.False(t, r.ValidatePassed)
		assert.NotNil(t, r.ValidateError)
	}
}

type panicScorer struct{}

func (panicScorer) Evaluate(ctx context.Context, caseID string, generated, expected core.ArtifactSet, dir string) core.EvaluationResult {
	panic("validator crashed")
}

func TestScoringPanicIsEvaluationFailure(t *testing.T) {
	gen := testkit.SkillGenerator{"v1": {"vpc": completion("a"), "bucket": completion("b")}}
	h := newHarness(t, gen, panicScorer{})
	h.config.MaxIterations = 1

	report := h.run(t)

	for _, r := range report.Iterations[0].Results {
		assert.Equal(t, []string{"Evaluation failed: panic: validator crashed"}, r.Errors)
	}
}

func TestArtifactsArePersistedPerCase(t *testing.T) {
	base := t.TempDir()
	gen := testkit.SkillGenerator{"v1": {"vpc": completion("good-a"), "bucket": "no markers at all"}}
	h := newHarness(t, gen, tableScorer{"good-a": passed(0.9)})
	h.artifacts = artifact.NewFSStore(base)
	h.config.MaxIterations = 1

	h.run(t)

	set, err := artifact.ReadSet(artifact.ArtifactDir(base, 1, "a"))
	require.NoError(t, err)
	assert.Equal(t, "good-a", set.Main())

	_, err = os.Stat(filepath.Join(artifact.ArtifactDir(base, 1, "b"), "manifest.json"))
	assert.NoError(t, err)
}

func TestHistoryFailureIsFatal(t *testing.T) {
	gen := testkit.SkillGenerator{"v1": {"vpc": completion("low-a"), "bucket": completion("low-b")}}
	h := newHarness(t, gen, tableScorer{"low-a": passed(0.5), "low-b": passed(0.5)}, testkit.Revision("v2"))
	diskFull := errors.New("disk full")
	h.history.Err = diskFull

	report, err := h.tuner(t, nil).Run(context.Background())

	require.ErrorIs(t, err, diskFull)
	assert.Empty(t, report.Iterations)
	// the unevaluated revision is replaced by the checkpoint
	assert.Equal(t, "v1", h.skills.Current())
	assert.Equal(t, "v1", report.Best.Skill)
}

func TestCancelledRunMakesNoDecision(t *testing.T) {
	gen := testkit.SkillGenerator{"v1": {"vpc": completion("low-a"), "bucket": completion("low-b")}}
	h := newHarness(t, gen, tableScorer{"low-a": passed(0.5), "low-b": passed(0.5)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := h.tuner(t, nil).Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Iterations)
	assert.Empty(t, h.history.Iterations)
	assert.Empty(t, h.skills.Saves)
	assert.Equal(t, StateRunning, report.FinalState)
}

func TestCheckpointNeverWorsens(t *testing.T) {
	gen := testkit.NewScriptedGenerator(
		[]string{completion("s50"), completion("s50")},
		[]string{completion("s70"), completion("s70")},
		[]string{completion("s60"), completion("s60")},
		[]string{completion("s50"), completion("broken")},
		[]string{completion("s80"), completion("s70")},
	)
	scorer := tableScorer{
		"s50": passed(0.5), "s60": passed(0.6), "s70": passed(0.7), "s80": passed(0.8), "broken": failed(0),
	}
	h := newHarness(t, gen, scorer,
		testkit.Revision("v2", "one"), testkit.Revision("v3", "two"), testkit.Revision("v4", "three"))

	tu := h.tuner(t, nil)
	var seen []core.TuningIteration
	tu.OnIteration(func(it core.TuningIteration) { seen = append(seen, it) })
	report, err := tu.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, report.Iterations, seen)
	for _, it := range report.Iterations {
		if it.Decision == DecisionAccepted || it.Decision == DecisionTargetMet {
			assert.LessOrEqual(t, it.AvgScore, report.Best.Score)
		}
		assert.LessOrEqual(t, it.ValidatePassRate, report.Best.ValidatePassRate)
	}
	assert.InDelta(t, 0.75, report.Best.Score, 1e-9)
	assert.Equal(t, 5, report.Best.Iteration)
	assert.Equal(t, []string{DecisionAccepted, DecisionAccepted, DecisionSkipped, DecisionRolledBack, DecisionAccepted},
		decisions(report.Iterations))
}

func TestRunRecordsMetrics(t *testing.T) {
	gen := testkit.SkillGenerator{
		"v1": {"vpc": completion("low-a"), "bucket": "prose only"},
		"v2": {"vpc": completion("good-a"), "bucket": completion("good-b")},
	}
	scorer := tableScorer{"low-a": passed(0.5), "good-a": passed(0.9), "good-b": passed(0.9)}
	h := newHarness(t, gen, scorer, testkit.Revision("v2", "emit every section"))

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)
	obs := observability.New(m, tracing.NewNop(), logging.NewNop())

	_, err := h.tuner(t, obs).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IterationsTotal.WithLabelValues(DecisionAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IterationsTotal.WithLabelValues(DecisionTargetMet)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkillRevisionsTotal.WithLabelValues("revised")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionFallbacks.WithLabelValues("main")))
	assert.InDelta(t, 0.9, testutil.ToFloat64(m.BestScore), 1e-9)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{MaxIterations: 0, Target: 0.85, GenerationTimeout: 1},
		{MaxIterations: 1, Target: 0, GenerationTimeout: 1},
		{MaxIterations: 1, Target: 1.5, GenerationTimeout: 1},
		{MaxIterations: 1, Target: 0.85},
	}
	for _, c := range bad {
		assert.Error(t, c.Validate(), "%+v", c)
	}
}

func TestNewRejectsIncompleteDeps(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.Error(t, err)

	_, err = New(DefaultConfig(), Deps{Corpus: corpus})
	assert.Error(t, err)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateTargetMet.Terminal())
	assert.True(t, StateExhausted.Terminal())
	assert.False(t, StateAccepted.Terminal())
	assert.False(t, StateRolledBack.Terminal())
	assert.False(t, StateRunning.Terminal())
}
