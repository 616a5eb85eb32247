// Package analysis aggregates recurring defects across one evaluated batch
// and renders them as the prompt section used for skill revision.
package analysis

import (
	"sort"

	"github.com/snow-ghost/skilltune/core"
)

// Score buckets.
const (
	LowScoreThreshold  = 0.6 // strictly below
	HighScoreThreshold = 0.8 // at or above
)

// Analyze builds an ErrorAnalysis from results in batch order. It is pure.
func Analyze(results []core.EvaluationResult) core.ErrorAnalysis {
	a := core.ErrorAnalysis{
		ValidationErrors: []core.ValidationFailure{},
		LintWarnings:     []string{},
		LowScoreCases:    []core.CaseScore{},
		HighScoreCases:   []core.CaseScore{},
	}
	missing := newCounter()
	extra := newCounter()

	for _, r := range results {
		if !r.ValidatePassed {
			a.ValidationErrors = append(a.ValidationErrors, core.ValidationFailure{
				CaseID:  r.CaseID,
				Message: r.ValidationMessage(),
			})
		}
		for _, t := range r.MissingResources {
			missing.add(t)
		}
		for _, t := range r.ExtraResources {
			extra.add(t)
		}
		a.LintWarnings = append(a.LintWarnings, r.LintWarnings...)

		switch {
		case r.Score < LowScoreThreshold:
			a.LowScoreCases = append(a.LowScoreCases, core.CaseScore{CaseID: r.CaseID, Score: r.Score})
		case r.Score >= HighScoreThreshold:
			a.HighScoreCases = append(a.HighScoreCases, core.CaseScore{CaseID: r.CaseID, Score: r.Score})
		}
	}

	a.MissingResources = missing.sorted()
	a.ExtraResources = extra.sorted()
	return a
}

// counter counts resource types, remembering first-seen order for ties.
type counter struct {
	order []string
	n     map[string]int
}

func newCounter() *counter {
	return &counter{n: make(map[string]int)}
}

func (c *counter) add(t string) {
	if _, ok := c.n[t]; !ok {
		c.order = append(c.order, t)
	}
	c.n[t]++
}

func (c *counter) sorted() []core.ResourceCount {
	out := make([]core.ResourceCount, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, core.ResourceCount{Type: t, Count: c.n[t]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
