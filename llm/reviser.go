package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/snow-ghost/skilltune/analysis"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/skills"
)

// Reviser asks the model to rewrite the skill against the defects of a batch.
type Reviser struct {
	completion Completion
}

func NewReviser(completion Completion) *Reviser {
	return &Reviser{completion: completion}
}

// Revise implements core.Reviser. The raw text is parsed by skills.ParseRevision.
func (r *Reviser) Revise(ctx context.Context, skill string, a core.ErrorAnalysis) (string, error) {
	return r.completion.Complete(ctx, PurposeRevise, "", RevisionPrompt(skill, a))
}

// RevisionPrompt carries the current skill, the rendered analysis and the
// marker contract of the reply.
func RevisionPrompt(skill string, a core.ErrorAnalysis) string {
	var b strings.Builder
	b.WriteString("Below is a skill definition for generating AWS Terraform code.\n")
	b.WriteString("Terraform generated with this skill produced the errors listed afterwards.\n\n")
	b.WriteString("## Current skill definition\n\n")
	b.WriteString(strings.TrimSpace(skill))
	b.WriteString("\n\n## Error analysis\n\n")
	b.WriteString(analysis.Render(a))
	b.WriteString("\n## Task\n\n")
	b.WriteString("Improve the skill definition so these errors stop occurring. ")
	b.WriteString("State each improvement, then output the complete updated skill definition.\n\n")
	b.WriteString("Output format:\n")
	fmt.Fprintf(&b, "1. List the improvements between %s and %s, one per line\n", skills.UpdatesStart, skills.UpdatesEnd)
	fmt.Fprintf(&b, "2. Output the complete updated skill definition between %s and %s\n\n", skills.SkillsStart, skills.SkillsEnd)
	b.WriteString("Requirements:\n")
	b.WriteString("- Keep the parts of the skill that already work\n")
	b.WriteString("- Add concrete countermeasures for each error pattern\n")
	b.WriteString("- Add guidance that helps produce working Terraform\n")
	return b.String()
}
