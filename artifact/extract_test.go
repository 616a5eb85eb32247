package artifact

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/skilltune/core"
)

func sampleSet() core.ArtifactSet {
	return core.NewArtifactSet(map[core.ArtifactKey]string{
		core.KeyMain:      "resource \"aws_vpc\" \"main\" {\n  cidr_block = var.cidr\n}",
		core.KeyVariables: "variable \"cidr\" {\n  type = string\n}",
		core.KeyOutputs:   "output \"vpc_id\" {\n  value = aws_vpc.main.id\n}",
		core.KeyProviders: "provider \"aws\" {\n  region = \"us-east-1\"\n}",
	})
}

func TestExtractRoundTrip(t *testing.T) {
	want := sampleSet()
	got := Extract(Render(want, DefaultMarkers))

	if diff := cmp.Diff(want, got.Set); diff != "" {
		t.Errorf("extracted set mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got.Complete())
	assert.Empty(t, got.Missing())
}

func TestExtractStripsCodeFences(t *testing.T) {
	content := "[MAIN_TF_START]\n```hcl\nresource \"aws_s3_bucket\" \"b\" {}\n```\n[MAIN_TF_END]"
	got := Extract(content)

	assert.Equal(t, `resource "aws_s3_bucket" "b" {}`, got.Set[core.KeyMain])
	assert.Equal(t, Extracted, got.Sections[core.KeyMain])
	assert.Equal(t, []core.ArtifactKey{core.KeyVariables, core.KeyOutputs, core.KeyProviders}, got.Missing())
}

func TestExtractMalformedFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"no markers", "here is some terraform: resource \"a\" \"b\" {}"},
		{"end before start", "[MAIN_TF_END] x [MAIN_TF_START]"},
		{"start only", "[MAIN_TF_START] resource"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.content)
			require.Len(t, got.Set, 4)
			assert.Equal(t, "", got.Set[core.KeyMain])
			assert.Equal(t, Fallback, got.Sections[core.KeyMain])
			assert.False(t, got.Complete())
			assert.Len(t, got.Missing(), 4)
		})
	}
}

func TestExtractWithCustomMarkers(t *testing.T) {
	markers := []Marker{{Key: core.KeyOutputs, Start: "<out>", End: "</out>"}}
	got := ExtractWith("<out> output \"x\" {} </out>", markers)

	assert.Equal(t, `output "x" {}`, got.Set[core.KeyOutputs])
	assert.Equal(t, "fallback", got.Sections[core.KeyMain].String())
	assert.Equal(t, "extracted", got.Sections[core.KeyOutputs].String())
}
