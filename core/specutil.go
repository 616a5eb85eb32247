package core

import "strings"

// ValidateTrainingCase lists the problems that make a case unusable for scoring.
func ValidateTrainingCase(tc TrainingCase) (bool, []string) {
	var problems []string
	if strings.TrimSpace(tc.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(tc.Request) == "" {
		problems = append(problems, "request is required")
	}
	for _, k := range ArtifactKeys {
		if _, ok := tc.Expected[k]; !ok {
			problems = append(problems, "expected "+k.FileName()+" is missing")
		}
	}
	return len(problems) == 0, problems
}
