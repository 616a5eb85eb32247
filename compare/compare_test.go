package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snow-ghost/skilltune/core"
)

const vpcAndInstance = `
resource "aws_vpc" "main" {
  cidr_block = "10.0.0.0/16"
}

resource "aws_instance" "web" {
  ami           = data.aws_ami.ubuntu.id
  instance_type = "t3.micro"
}

data "aws_ami" "ubuntu" {
  most_recent = true
}
`

func TestResourceTypes(t *testing.T) {
	got := ResourceTypes(vpcAndInstance)
	assert.Equal(t, []string{"aws_ami", "aws_instance", "aws_vpc"}, got.Sorted())
	assert.Empty(t, ResourceTypes("variable \"x\" {}"))
}

func TestResourceIDs(t *testing.T) {
	got := ResourceIDs(vpcAndInstance)
	assert.Equal(t, []string{"aws_instance.web", "aws_vpc.main", "data.aws_ami.ubuntu"}, got.Sorted())
}

func TestResourceMatchRate(t *testing.T) {
	tests := []struct {
		name      string
		generated Set
		expected  Set
		want      float64
	}{
		{"identical", newSet("aws_vpc", "aws_subnet"), newSet("aws_subnet", "aws_vpc"), 1.0},
		{"both empty", newSet(), newSet(), 1.0},
		{"nothing expected, something generated", newSet("aws_vpc"), newSet(), 0.5},
		{"half overlap", newSet("aws_instance"), newSet("aws_instance", "aws_vpc"), 0.5},
		{"disjoint", newSet("aws_s3_bucket"), newSet("aws_vpc"), 0},
		{"nothing generated", newSet(), newSet("aws_vpc"), 0},
		{"one of three", newSet("a", "b"), newSet("b", "c"), 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResourceMatchRate(tt.generated, tt.expected)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestJaccardIsSymmetric(t *testing.T) {
	pairs := [][2]Set{
		{newSet("a"), newSet("a", "b")},
		{newSet("a", "b", "c"), newSet("c", "d")},
		{newSet(), newSet("x")},
	}
	for _, p := range pairs {
		assert.Equal(t, Jaccard(p[0], p[1], 1), Jaccard(p[1], p[0], 1))
	}
}

func TestMissingAndExtra(t *testing.T) {
	gen := newSet("aws_instance", "aws_eip")
	exp := newSet("aws_instance", "aws_vpc", "aws_subnet")

	assert.Equal(t, []string{"aws_subnet", "aws_vpc"}, Missing(gen, exp))
	assert.Equal(t, []string{"aws_eip"}, Extra(gen, exp))
}

func TestStructuralSimilarity(t *testing.T) {
	assert.Equal(t, 0.5, StructuralSimilarity("", "# nothing"))
	assert.Equal(t, 1.0, StructuralSimilarity(vpcAndInstance, vpcAndInstance))

	renamed := `resource "aws_vpc" "primary" {}`
	assert.Equal(t, 0.0, StructuralSimilarity(renamed, `resource "aws_vpc" "main" {}`))
}

func TestTextSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, TextSimilarity("a  b\n c", "a b c"))
	assert.Equal(t, 1.0, TextSimilarity("", ""))
	assert.Equal(t, 0.0, TextSimilarity("abc", ""))
	// "abcd" vs "abxd": 3 matching characters out of 8
	assert.InDelta(t, 0.75, TextSimilarity("abcd", "abxd"), 1e-12)
}

func TestConfigSimilarityWeighting(t *testing.T) {
	// identical structure, identical text
	assert.InDelta(t, 1.0, ConfigSimilarity(vpcAndInstance, vpcAndInstance), 1e-12)
	// no declarations on either side: 0.7*0.5 + 0.3*text
	assert.InDelta(t, 0.7*0.5+0.3*1.0, ConfigSimilarity("locals {}", "locals {}"), 1e-12)
}

func TestCompare(t *testing.T) {
	expected := core.NewArtifactSet(map[core.ArtifactKey]string{
		core.KeyMain: `resource "aws_instance" "web" {}
resource "aws_vpc" "main" {}`,
	})
	generated := core.NewArtifactSet(map[core.ArtifactKey]string{
		core.KeyMain: `resource "aws_instance" "web" {}`,
	})

	c := Compare(generated, expected)
	assert.InDelta(t, 0.5, c.ResourceMatchRate, 1e-12)
	assert.Equal(t, []string{"aws_vpc"}, c.Missing)
	assert.Empty(t, c.Extra)
	assert.Greater(t, c.ConfigSimilarity, 0.0)
	assert.Less(t, c.ConfigSimilarity, 1.0)
}
