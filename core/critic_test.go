package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	stats := Summarize([]EvaluationResult{
		{Score: 0.9, ValidatePassed: true},
		{Score: 0.3, ValidatePassed: false},
	})
	assert.InDelta(t, 0.6, stats.AvgScore, 1e-12)
	assert.InDelta(t, 0.5, stats.ValidatePassRate, 1e-12)

	assert.Equal(t, BatchStats{}, Summarize(nil))
}

func TestCheckpointCriticAccept(t *testing.T) {
	c := NewCheckpointCritic()
	best := &Checkpoint{Skill: "s", Score: 0.9, ValidatePassRate: 0.5, Iteration: 1}

	tests := []struct {
		name  string
		stats BatchStats
		want  bool
	}{
		{"rate improves while score drops", BatchStats{AvgScore: 0.7, ValidatePassRate: 1.0}, true},
		{"score improves at equal rate", BatchStats{AvgScore: 0.95, ValidatePassRate: 0.5}, true},
		{"equal score and rate", BatchStats{AvgScore: 0.9, ValidatePassRate: 0.5}, false},
		{"score drops at equal rate", BatchStats{AvgScore: 0.8, ValidatePassRate: 0.5}, false},
		{"rate regresses with better score", BatchStats{AvgScore: 0.99, ValidatePassRate: 0.0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := c.Accept(best, tt.stats)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestCheckpointCriticBaseline(t *testing.T) {
	ok, reason := NewCheckpointCritic().Accept(nil, BatchStats{})
	assert.True(t, ok)
	assert.Equal(t, "baseline", reason)
}

func TestCheckpointCriticRegressed(t *testing.T) {
	c := NewCheckpointCritic()
	best := &Checkpoint{ValidatePassRate: 2.0 / 3.0}

	assert.False(t, c.Regressed(nil, BatchStats{}))
	assert.False(t, c.Regressed(best, BatchStats{ValidatePassRate: 2.0 / 3.0}))
	assert.True(t, c.Regressed(best, BatchStats{ValidatePassRate: 1.0 / 3.0}))
}

func TestCheckpointCriticTargetMet(t *testing.T) {
	c := NewCheckpointCritic()
	assert.True(t, c.TargetMet(BatchStats{AvgScore: 0.85, ValidatePassRate: 1}, 0.85))
	assert.False(t, c.TargetMet(BatchStats{AvgScore: 0.95, ValidatePassRate: 0.9}, 0.85))
	assert.False(t, c.TargetMet(BatchStats{AvgScore: 0.84, ValidatePassRate: 1}, 0.85))
}
