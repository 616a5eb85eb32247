package core

// passRateEpsilon absorbs float noise when comparing averaged pass rates.
const passRateEpsilon = 1e-9

// BatchStats is the aggregate of one evaluated batch.
type BatchStats struct {
	AvgScore         float64
	ValidatePassRate float64
}

// Summarize averages scores and the validate-pass rate over results.
// An empty batch summarizes to zeros.
func Summarize(results []EvaluationResult) BatchStats {
	if len(results) == 0 {
		return BatchStats{}
	}
	var total float64
	passed := 0
	for _, r := range results {
		total += r.Score
		if r.ValidatePassed {
			passed++
		}
	}
	n := float64(len(results))
	return BatchStats{
		AvgScore:         Clamp01(total / n),
		ValidatePassRate: Clamp01(float64(passed) / n),
	}
}

// CheckpointCritic decides whether a batch beats the best checkpoint.
type CheckpointCritic struct{}

func NewCheckpointCritic() *CheckpointCritic { return &CheckpointCritic{} }

// Accept reports whether stats should replace best as the checkpoint.
// A nil best means nothing has been measured yet and the batch is the baseline.
// Otherwise the pass rate must not regress, and either the score or the pass
// rate must strictly improve.
func (c *CheckpointCritic) Accept(best *Checkpoint, stats BatchStats) (bool, string) {
	if best == nil {
		return true, "baseline"
	}
	if stats.ValidatePassRate < best.ValidatePassRate-passRateEpsilon {
		return false, "validate pass rate regressed"
	}
	if stats.ValidatePassRate > best.ValidatePassRate+passRateEpsilon {
		return true, "validate pass rate improved"
	}
	if stats.AvgScore > best.Score {
		return true, "score improved"
	}
	return false, "not improved"
}

// Regressed reports whether the batch pass rate fell below the checkpoint's.
func (c *CheckpointCritic) Regressed(best *Checkpoint, stats BatchStats) bool {
	if best == nil {
		return false
	}
	return stats.ValidatePassRate < best.ValidatePassRate-passRateEpsilon
}

// TargetMet reports whether the batch reached the target score with every case valid.
func (c *CheckpointCritic) TargetMet(stats BatchStats, target float64) bool {
	return stats.AvgScore >= target && stats.ValidatePassRate >= 1-passRateEpsilon
}
