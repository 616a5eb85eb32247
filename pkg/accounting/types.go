package accounting

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExceeded is returned when a run has spent its configured budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// CostRecord represents the cost of one completion call
type CostRecord struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	RunID            string    `json:"run_id"`
	Purpose          string    `json:"purpose"` // generate, revise
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Currency         string    `json:"currency"`
	CostInput        float64   `json:"cost_input"`
	CostOutput       float64   `json:"cost_output"`
	CostTotal        float64   `json:"cost_total"`
}

// CostSummary represents aggregated cost data
type CostSummary struct {
	TotalRecords          int64   `json:"total_records"`
	TotalCost             float64 `json:"total_cost"`
	TotalInputCost        float64 `json:"total_input_cost"`
	TotalOutputCost       float64 `json:"total_output_cost"`
	TotalPromptTokens     int64   `json:"total_prompt_tokens"`
	TotalCompletionTokens int64   `json:"total_completion_tokens"`
	Currency              string  `json:"currency"`
}

// CostGroup represents cost data grouped by a field
type CostGroup struct {
	GroupBy    string      `json:"group_by"`
	GroupValue string      `json:"group_value"`
	Summary    CostSummary `json:"summary"`
}

// BudgetInfo represents budget information
type BudgetInfo struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Used      float64 `json:"used"`
	Remaining float64 `json:"remaining"`
	Exceeded  bool    `json:"exceeded"`
}

// CostFilter represents filters for cost queries
type CostFilter struct {
	RunID    string `json:"run_id,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Currency string `json:"currency,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Group-by columns accepted by GetGroupedCosts
const (
	GroupByRun      = "run_id"
	GroupByPurpose  = "purpose"
	GroupByProvider = "provider"
	GroupByModel    = "model"
)

func validGroupBy(field string) bool {
	switch field {
	case GroupByRun, GroupByPurpose, GroupByProvider, GroupByModel:
		return true
	}
	return false
}

// ExportFormat represents supported export formats
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
)

// CostAggregator stores cost records and answers summary queries
type CostAggregator interface {
	RecordCost(ctx context.Context, record CostRecord) error
	GetCosts(ctx context.Context, filter CostFilter) ([]CostRecord, error)
	GetCostSummary(ctx context.Context, filter CostFilter) (CostSummary, error)
	GetGroupedCosts(ctx context.Context, filter CostFilter, groupBy string) ([]CostGroup, error)
	Close() error
}
