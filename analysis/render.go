package analysis

import (
	"fmt"
	"strings"

	"github.com/snow-ghost/skilltune/core"
)

// maxRenderedLint caps the lint lines included in a prompt.
const maxRenderedLint = 20

// Render formats a as markdown for the revision prompt. Empty sections are
// written as "none" so the model sees every heading.
func Render(a core.ErrorAnalysis) string {
	var b strings.Builder

	b.WriteString("### Validation errors\n")
	if len(a.ValidationErrors) == 0 {
		b.WriteString("none\n")
	}
	for _, v := range a.ValidationErrors {
		fmt.Fprintf(&b, "- %s: %s\n", v.CaseID, oneLine(v.Message))
	}

	b.WriteString("\n### Missing resources\n")
	writeCounts(&b, a.MissingResources)

	b.WriteString("\n### Extra resources\n")
	writeCounts(&b, a.ExtraResources)

	b.WriteString("\n### Lint warnings\n")
	if len(a.LintWarnings) == 0 {
		b.WriteString("none\n")
	}
	for i, w := range a.LintWarnings {
		if i == maxRenderedLint {
			fmt.Fprintf(&b, "- ... %d more\n", len(a.LintWarnings)-maxRenderedLint)
			break
		}
		fmt.Fprintf(&b, "- %s\n", w)
	}

	b.WriteString("\n### Low-score cases\n")
	writeScores(&b, a.LowScoreCases)

	b.WriteString("\n### High-score cases\n")
	writeScores(&b, a.HighScoreCases)

	return b.String()
}

func writeCounts(b *strings.Builder, counts []core.ResourceCount) {
	if len(counts) == 0 {
		b.WriteString("none\n")
		return
	}
	for _, c := range counts {
		fmt.Fprintf(b, "- %s (%d cases)\n", c.Type, c.Count)
	}
}

func writeScores(b *strings.Builder, scores []core.CaseScore) {
	if len(scores) == 0 {
		b.WriteString("none\n")
		return
	}
	for _, s := range scores {
		fmt.Fprintf(b, "- %s: %.2f\n", s.CaseID, s.Score)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
