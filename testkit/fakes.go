package testkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/core"
)

// GeneratorFunc adapts a function to core.Generator.
type GeneratorFunc func(ctx context.Context, request, skill string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, request, skill string) (string, error) {
	return f(ctx, request, skill)
}

// SkillGenerator answers from a table keyed by skill then by request.
// Unknown pairs produce an error.
type SkillGenerator map[string]map[string]string

func (g SkillGenerator) Generate(ctx context.Context, request, skill string) (string, error) {
	if out, ok := g[skill][request]; ok {
		return out, nil
	}
	return "", fmt.Errorf("no scripted completion for skill %q and request %q", skill, request)
}

// ScriptedGenerator returns one batch of completions per iteration. Call n
// of a batch of size k is served from batches[n/k][n%k]; the last batch repeats.
type ScriptedGenerator struct {
	mu      sync.Mutex
	batches [][]string
	calls   int
}

func NewScriptedGenerator(batches ...[]string) *ScriptedGenerator {
	return &ScriptedGenerator{batches: batches}
}

func (g *ScriptedGenerator) Generate(ctx context.Context, request, skill string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.batches) == 0 {
		return "", errors.New("no scripted batches")
	}
	size := len(g.batches[0])
	batch := g.calls / size
	if batch >= len(g.batches) {
		batch = len(g.batches) - 1
	}
	out := g.batches[batch][g.calls%size]
	g.calls++
	return out, nil
}

// RevisionCall records one Revise invocation.
type RevisionCall struct {
	Skill    string
	Analysis core.ErrorAnalysis
}

// ScriptedReviser replies in order and records its calls. An exhausted
// script is an error.
type ScriptedReviser struct {
	mu      sync.Mutex
	replies []string
	Calls   []RevisionCall
}

func NewScriptedReviser(replies ...string) *ScriptedReviser {
	return &ScriptedReviser{replies: replies}
}

func (r *ScriptedReviser) Revise(ctx context.Context, skill string, a core.ErrorAnalysis) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, RevisionCall{Skill: skill, Analysis: a})
	if len(r.replies) == 0 {
		return "", errors.New("reviser script exhausted")
	}
	out := r.replies[0]
	r.replies = r.replies[1:]
	return out, nil
}

// ContentValidator passes an artifact directory unless its main file
// contains InvalidToken.
type ContentValidator struct{}

func (ContentValidator) Validate(ctx context.Context, dir string) core.ValidationOutcome {
	set, err := artifact.ReadSet(dir)
	if err != nil {
		return core.ValidationOutcome{Message: err.Error()}
	}
	if strings.Contains(set.Main(), InvalidToken) {
		return core.ValidationOutcome{Message: "Unsupported block type: Blocks of type \"invalid\" are not expected here."}
	}
	return core.ValidationOutcome{Passed: true}
}

// StaticLinter reports the same warnings for every directory.
type StaticLinter struct {
	Messages []string
}

func (l StaticLinter) Lint(ctx context.Context, dir string) core.LintReport {
	return core.LintReport{Count: len(l.Messages), Messages: append([]string(nil), l.Messages...)}
}

// MemorySkillStore keeps the skill in memory and counts writes.
type MemorySkillStore struct {
	mu      sync.Mutex
	skill   string
	Saves   []string
	Backups []int
}

func NewMemorySkillStore(skill string) *MemorySkillStore {
	return &MemorySkillStore{skill: skill}
}

func (s *MemorySkillStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skill, nil
}

func (s *MemorySkillStore) Save(skill string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skill = skill
	s.Saves = append(s.Saves, skill)
	return nil
}

func (s *MemorySkillStore) Backup(iteration int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backups = append(s.Backups, iteration)
	return fmt.Sprintf("skill_backup_%d.md", iteration), nil
}

// Current returns the stored skill.
func (s *MemorySkillStore) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skill
}

// MemoryHistory is an in-memory core.HistoryStore. A non-nil Err fails every Append.
type MemoryHistory struct {
	mu         sync.Mutex
	Iterations []core.TuningIteration
	Err        error
}

func (h *MemoryHistory) Append(ctx context.Context, it core.TuningIteration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return h.Err
	}
	h.Iterations = append(h.Iterations, it)
	return nil
}

func (h *MemoryHistory) List(ctx context.Context, runID string) ([]core.TuningIteration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []core.TuningIteration
	for _, it := range h.Iterations {
		if runID == "" || it.RunID == runID {
			out = append(out, it)
		}
	}
	return out, nil
}
