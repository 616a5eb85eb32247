// Package compare measures how closely generated Terraform matches the
// expected configuration, at the level of declared resource types and
// resource identifiers.
package compare

import (
	"regexp"
	"sort"
)

var (
	resourcePattern   = regexp.MustCompile(`resource\s+"([^"]+)"\s+"([^"]+)"`)
	dataSourcePattern = regexp.MustCompile(`data\s+"([^"]+)"\s+"([^"]+)"`)
)

// emptyExpectedCredit is the match rate when nothing was expected but
// something was generated. It is a tuning policy, not a derived value.
const emptyExpectedCredit = 0.5

// Set is a set of strings.
type Set map[string]struct{}

func newSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ResourceTypes returns the distinct declared types of resources and data sources.
func ResourceTypes(text string) Set {
	types := newSet()
	for _, re := range []*regexp.Regexp{resourcePattern, dataSourcePattern} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			types[m[1]] = struct{}{}
		}
	}
	return types
}

// ResourceIDs returns fully qualified identifiers: "type.name" for
// resources and "data.type.name" for data sources.
func ResourceIDs(text string) Set {
	ids := newSet()
	for _, m := range resourcePattern.FindAllStringSubmatch(text, -1) {
		ids[m[1]+"."+m[2]] = struct{}{}
	}
	for _, m := range dataSourcePattern.FindAllStringSubmatch(text, -1) {
		ids["data."+m[1]+"."+m[2]] = struct{}{}
	}
	return ids
}

// Jaccard returns |a∩b| / |a∪b|, or ifEmpty when both sets are empty.
func Jaccard(a, b Set, ifEmpty float64) float64 {
	if len(a) == 0 && len(b) == 0 {
		return ifEmpty
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// ResourceMatchRate is the Jaccard index of generated and expected types.
// With nothing expected it is 1 for an empty generation and
// emptyExpectedCredit otherwise.
func ResourceMatchRate(generated, expected Set) float64 {
	if len(expected) == 0 {
		if len(generated) == 0 {
			return 1.0
		}
		return emptyExpectedCredit
	}
	return Jaccard(generated, expected, 1.0)
}

// Missing returns expected types absent from generated, sorted.
func Missing(generated, expected Set) []string {
	return difference(expected, generated)
}

// Extra returns generated types that were not expected, sorted.
func Extra(generated, expected Set) []string {
	return difference(generated, expected)
}

func difference(a, b Set) []string {
	out := newSet()
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out.Sorted()
}
