// Package testkit provides deterministic collaborators and fixtures for
// exercising the tuning loop without a model or terraform.
package testkit

import (
	"fmt"
	"strings"

	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/skills"
)

// InvalidToken makes ContentValidator reject an artifact whose main file contains it.
const InvalidToken = "__invalid__"

// Case builds a training case whose expected main file is main and whose
// other files are minimal.
func Case(id, request, main string) core.TrainingCase {
	return core.TrainingCase{
		ID:       id,
		Source:   "testkit",
		Request:  request,
		Expected: Set(main),
	}
}

// Set builds an artifact set around a main file. Surrounding whitespace is
// trimmed the way extraction trims it.
func Set(main string) core.ArtifactSet {
	return core.NewArtifactSet(map[core.ArtifactKey]string{
		core.KeyMain:      strings.TrimSpace(main),
		core.KeyVariables: `variable "region" {}`,
		core.KeyOutputs:   "",
		core.KeyProviders: `provider "aws" {}`,
	})
}

// Resource renders an empty resource block.
func Resource(typ, name string) string {
	return fmt.Sprintf("resource %q %q {}\n", typ, name)
}

// Completion wraps set in the default markers the way a well-behaved model would.
func Completion(set core.ArtifactSet) string {
	return "Here is the configuration.\n\n" + artifact.Render(set, artifact.DefaultMarkers)
}

// Invalid returns main with InvalidToken appended.
func Invalid(main string) string {
	return strings.TrimSpace(main) + "\n# " + InvalidToken
}

// Revision formats a reviser reply carrying skill and updates.
func Revision(skill string, updates ...string) string {
	var b strings.Builder
	b.WriteString(skills.UpdatesStart + "\n")
	for _, u := range updates {
		b.WriteString("- " + u + "\n")
	}
	b.WriteString(skills.UpdatesEnd + "\n\n")
	b.WriteString(skills.SkillsStart + "\n" + skill + "\n" + skills.SkillsEnd + "\n")
	return b.String()
}
