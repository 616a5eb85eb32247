package skills

import "strings"

const (
	UpdatesStart = "[UPDATES_START]"
	UpdatesEnd   = "[UPDATES_END]"
	SkillsStart  = "[SKILLS_START]"
	SkillsEnd    = "[SKILLS_END]"
)

// FallbackUpdate is recorded when a revision carries no usable skill body.
const FallbackUpdate = "skill not updated: revision markers not found"

// RevisionKind tells whether a revision produced a new skill.
type RevisionKind int

const (
	Fallback RevisionKind = iota
	Revised
)

func (k RevisionKind) String() string {
	if k == Revised {
		return "revised"
	}
	return "fallback"
}

// Revision is the parsed reviser output. On Fallback, Skill is the previous
// skill unchanged.
type Revision struct {
	Kind    RevisionKind
	Skill   string
	Updates []string
}

// ParseRevision extracts the update list and the revised skill from raw
// reviser output. previous is kept when the skill markers are missing or
// enclose nothing.
func ParseRevision(raw, previous string) Revision {
	rev := Revision{Updates: []string{}}

	if body, ok := between(raw, UpdatesStart, UpdatesEnd); ok {
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimLeft(line, "- ")
			if line != "" {
				rev.Updates = append(rev.Updates, line)
			}
		}
	}

	// a blank body would wipe the skill document
	if body, ok := between(raw, SkillsStart, SkillsEnd); ok && strings.TrimSpace(body) != "" {
		rev.Kind = Revised
		rev.Skill = strings.TrimSpace(body)
		return rev
	}

	rev.Kind = Fallback
	rev.Skill = previous
	rev.Updates = append(rev.Updates, FallbackUpdate)
	return rev
}

func between(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	j := strings.Index(s, end)
	if i == -1 || j == -1 || i+len(start) > j {
		return "", false
	}
	return s[i+len(start) : j], true
}
