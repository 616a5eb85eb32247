package compare

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/snow-ghost/skilltune/core"
)

const (
	structuralWeight = 0.7
	textWeight       = 0.3

	// bothEmptyStructural is the structural similarity of two files that declare nothing.
	bothEmptyStructural = 0.5
)

// StructuralSimilarity is the Jaccard index over resource identifiers.
func StructuralSimilarity(generated, expected string) float64 {
	return Jaccard(ResourceIDs(generated), ResourceIDs(expected), bothEmptyStructural)
}

// TextSimilarity is the character-level sequence-matcher ratio of the
// whitespace-normalized texts.
func TextSimilarity(generated, expected string) float64 {
	a := splitChars(normalizeSpace(generated))
	b := splitChars(normalizeSpace(expected))
	return difflib.NewMatcher(a, b).Ratio()
}

// ConfigSimilarity blends structural and text similarity, favouring structure
// over incidental naming and formatting.
func ConfigSimilarity(generated, expected string) float64 {
	return core.Clamp01(structuralWeight*StructuralSimilarity(generated, expected) +
		textWeight*TextSimilarity(generated, expected))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Comparison is the structural comparison of a generated set against the expected one.
type Comparison struct {
	ResourceMatchRate float64
	ConfigSimilarity  float64
	Missing           []string
	Extra             []string
}

// Compare evaluates the primary configuration file of both sets.
func Compare(generated, expected core.ArtifactSet) Comparison {
	genTypes := ResourceTypes(generated.Main())
	expTypes := ResourceTypes(expected.Main())
	return Comparison{
		ResourceMatchRate: core.Clamp01(ResourceMatchRate(genTypes, expTypes)),
		ConfigSimilarity:  ConfigSimilarity(generated.Main(), expected.Main()),
		Missing:           Missing(genTypes, expTypes),
		Extra:             Extra(genTypes, expTypes),
	}
}
