package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/snow-ghost/skilltune/artifact"
)

// Generator asks the model for the four Terraform files of a request,
// steered by the active skill.
type Generator struct {
	completion Completion
	markers    []artifact.Marker
}

// NewGenerator uses artifact.DefaultMarkers
func NewGenerator(completion Completion) *Generator {
	return &Generator{completion: completion, markers: artifact.DefaultMarkers}
}

// Generate implements core.Generator.
func (g *Generator) Generate(ctx context.Context, request, skill string) (string, error) {
	return g.completion.Complete(ctx, PurposeGenerate, GenerationPrompt(skill, g.markers), GenerationRequest(request))
}

// GenerationRequest is the user turn of a generation call
func GenerationRequest(request string) string {
	return "Generate Terraform for the following request:\n\n" + request
}

// GenerationPrompt embeds the skill and tells the model how to delimit each file.
func GenerationPrompt(skill string, markers []artifact.Marker) string {
	var b strings.Builder
	b.WriteString("You are an AWS Terraform expert. Follow the skill definition below to turn the user's request into Terraform code.\n\n")
	b.WriteString(strings.TrimSpace(skill))
	b.WriteString("\n\n## Output format\n\n")
	b.WriteString("Always split the output into the sections below and wrap each one in its markers:\n\n")
	for _, m := range markers {
		fmt.Fprintf(&b, "### %s\n```terraform\n%s\n... contents of %s ...\n%s\n```\n\n", m.Key.FileName(), m.Start, m.Key.FileName(), m.End)
	}
	b.WriteString("Requirements:\n")
	b.WriteString("- The code must work as written\n")
	b.WriteString("- The code must pass terraform validate\n")
	b.WriteString("- Follow AWS best practices\n")
	return b.String()
}
