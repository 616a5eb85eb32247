package artifact

import (
	"fmt"
	"strings"

	"github.com/snow-ghost/skilltune/core"
)

// Marker delimits one artifact section in completion text.
type Marker struct {
	Key   core.ArtifactKey
	Start string
	End   string
}

// DefaultMarkers are the section markers the generation prompt asks for.
var DefaultMarkers = []Marker{
	{Key: core.KeyMain, Start: "[MAIN_TF_START]", End: "[MAIN_TF_END]"},
	{Key: core.KeyVariables, Start: "[VARIABLES_TF_START]", End: "[VARIABLES_TF_END]"},
	{Key: core.KeyOutputs, Start: "[OUTPUTS_TF_START]", End: "[OUTPUTS_TF_END]"},
	{Key: core.KeyProviders, Start: "[PROVIDERS_TF_START]", End: "[PROVIDERS_TF_END]"},
}

// SectionStatus tells whether a section was found or fell back to empty content.
type SectionStatus int

const (
	Fallback SectionStatus = iota
	Extracted
)

func (s SectionStatus) String() string {
	if s == Extracted {
		return "extracted"
	}
	return "fallback"
}

// Extraction is the result of parsing one completion.
type Extraction struct {
	Set      core.ArtifactSet
	Sections map[core.ArtifactKey]SectionStatus
}

// Complete reports whether every section was delimited correctly.
func (e Extraction) Complete() bool {
	for _, st := range e.Sections {
		if st != Extracted {
			return false
		}
	}
	return true
}

// Missing lists the keys that fell back to empty content, in key order.
func (e Extraction) Missing() []core.ArtifactKey {
	var missing []core.ArtifactKey
	for _, k := range core.ArtifactKeys {
		if st, ok := e.Sections[k]; !ok || st != Extracted {
			missing = append(missing, k)
		}
	}
	return missing
}

var fenceTokens = []string{"```terraform", "```hcl", "```"}

// Extract pulls the four artifact files out of raw completion text using DefaultMarkers.
func Extract(content string) Extraction {
	return ExtractWith(content, DefaultMarkers)
}

// ExtractWith is Extract with caller-supplied markers. Sections whose markers
// are absent or out of order become empty strings; it never fails.
func ExtractWith(content string, markers []Marker) Extraction {
	files := make(map[core.ArtifactKey]string, len(markers))
	sections := make(map[core.ArtifactKey]SectionStatus, len(core.ArtifactKeys))
	for _, k := range core.ArtifactKeys {
		sections[k] = Fallback
	}

	for _, m := range markers {
		start := strings.Index(content, m.Start)
		end := strings.Index(content, m.End)
		if start == -1 || end == -1 || start+len(m.Start) > end {
			continue
		}
		files[m.Key] = stripFences(content[start+len(m.Start) : end])
		sections[m.Key] = Extracted
	}

	return Extraction{Set: core.NewArtifactSet(files), Sections: sections}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, f := range fenceTokens {
		s = strings.ReplaceAll(s, f, "")
	}
	return strings.TrimSpace(s)
}

// Render wraps each file of set in its markers, the inverse of ExtractWith.
func Render(set core.ArtifactSet, markers []Marker) string {
	var b strings.Builder
	for _, m := range markers {
		fmt.Fprintf(&b, "### %s\n```terraform\n%s\n%s\n%s\n```\n\n", m.Key.FileName(), m.Start, set[m.Key], m.End)
	}
	return b.String()
}
