package core

import "math"

// CompositeWeights holds the weights of the composite artifact score.
// Failed weights apply when validation fails, Passed weights otherwise.
type CompositeWeights struct {
	FailedResource   float64
	FailedSimilarity float64

	PassedResource   float64
	PassedSimilarity float64
	PassedLint       float64

	LintPenalty float64 // per warning
}

// DefaultCompositeWeights caps an invalid artifact at 0.3.
func DefaultCompositeWeights() CompositeWeights {
	return CompositeWeights{
		FailedResource:   0.2,
		FailedSimilarity: 0.1,
		PassedResource:   0.5,
		PassedSimilarity: 0.3,
		PassedLint:       0.2,
		LintPenalty:      0.1,
	}
}

// Score computes the composite score in [0,1].
func (w CompositeWeights) Score(validatePassed bool, resourceMatch, similarity float64, lintWarnings int) float64 {
	resourceMatch = Clamp01(resourceMatch)
	similarity = Clamp01(similarity)
	if !validatePassed {
		return Clamp01(resourceMatch*w.FailedResource + similarity*w.FailedSimilarity)
	}
	lint := LintScore(lintWarnings, w.LintPenalty)
	return Clamp01(resourceMatch*w.PassedResource + similarity*w.PassedSimilarity + lint*w.PassedLint)
}

// CompositeScore applies DefaultCompositeWeights.
func CompositeScore(validatePassed bool, resourceMatch, similarity float64, lintWarnings int) float64 {
	return DefaultCompositeWeights().Score(validatePassed, resourceMatch, similarity, lintWarnings)
}

// LintScore is 1 for a clean artifact and falls by penalty per warning, floored at 0.
func LintScore(warnings int, penalty float64) float64 {
	if warnings < 0 {
		warnings = 0
	}
	return math.Max(0, 1-float64(warnings)*penalty)
}

// Clamp01 bounds v to [0,1]; NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
