package accounting

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/snow-ghost/skilltune/pkg/cost"
)

// Manager manages cost accounting
type Manager struct {
	aggregator CostAggregator
	budget     float64
	currency   string
}

// Config holds accounting configuration
type Config struct {
	UseSQLite bool    `yaml:"use_sqlite"`
	DBPath    string  `yaml:"db_path"`
	Budget    float64 `yaml:"budget"` // per run; 0 disables the check
	Currency  string  `yaml:"currency"`
}

// NewManager creates a new accounting manager
func NewManager(config Config) (*Manager, error) {
	var aggregator CostAggregator
	if config.UseSQLite {
		sqlite, err := NewSQLiteAggregator(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite aggregator: %w", err)
		}
		aggregator = sqlite
	} else {
		aggregator = NewMemoryAggregator()
	}

	return NewManagerWith(aggregator, config.Budget, config.Currency), nil
}

// NewManagerWith wraps an existing aggregator
func NewManagerWith(aggregator CostAggregator, budget float64, currency string) *Manager {
	if currency == "" {
		currency = "USD"
	}
	return &Manager{aggregator: aggregator, budget: budget, currency: currency}
}

// RecordLLMCost records the cost of one completion call
func (m *Manager) RecordLLMCost(ctx context.Context, runID, purpose, provider, model string, c *cost.CostResult) error {
	return m.aggregator.RecordCost(ctx, CostRecord{
		Timestamp:        time.Now(),
		RunID:            runID,
		Purpose:          purpose,
		Provider:         provider,
		Model:            model,
		PromptTokens:     c.InputTokens,
		CompletionTokens: c.OutputTokens,
		Currency:         c.Currency,
		CostInput:        c.InputCost,
		CostOutput:       c.OutputCost,
		CostTotal:        c.TotalCost,
	})
}

// GetCosts retrieves costs with filters
func (m *Manager) GetCosts(ctx context.Context, filter CostFilter) ([]CostRecord, error) {
	return m.aggregator.GetCosts(ctx, filter)
}

// GetCostSummary gets cost summary with filters
func (m *Manager) GetCostSummary(ctx context.Context, filter CostFilter) (CostSummary, error) {
	return m.aggregator.GetCostSummary(ctx, filter)
}

// GetCostsByPurpose splits a run's spend between generation and revision
func (m *Manager) GetCostsByPurpose(ctx context.Context, runID string) ([]CostGroup, error) {
	return m.aggregator.GetGroupedCosts(ctx, CostFilter{RunID: runID}, GroupByPurpose)
}

// GetTopRuns lists runs by total spend
func (m *Manager) GetTopRuns(ctx context.Context, limit int) ([]CostGroup, error) {
	groups, err := m.aggregator.GetGroupedCosts(ctx, CostFilter{}, GroupByRun)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

// GetBudgetInfo reports a run's spend against amount
func (m *Manager) GetBudgetInfo(ctx context.Context, runID string, amount float64, currency string) (BudgetInfo, error) {
	summary, err := m.aggregator.GetCostSummary(ctx, CostFilter{RunID: runID, Currency: currency})
	if err != nil {
		return BudgetInfo{}, err
	}

	used := summary.TotalCost
	return BudgetInfo{
		Amount:    amount,
		Currency:  currency,
		Used:      used,
		Remaining: amount - used,
		Exceeded:  used >= amount,
	}, nil
}

// CheckBudget returns ErrBudgetExceeded once the run has spent the configured
// budget. Without a budget it always passes.
func (m *Manager) CheckBudget(ctx context.Context, runID string) error {
	if m.budget <= 0 {
		return nil
	}
	info, err := m.GetBudgetInfo(ctx, runID, m.budget, m.currency)
	if err != nil {
		return fmt.Errorf("failed to read budget: %w", err)
	}
	if info.Exceeded {
		return fmt.Errorf("%w: run %s used %.6f of %.6f %s", ErrBudgetExceeded, runID, info.Used, info.Amount, info.Currency)
	}
	return nil
}

// ExportCosts exports costs in specified format
func (m *Manager) ExportCosts(ctx context.Context, filter CostFilter, format ExportFormat) ([]byte, error) {
	records, err := m.aggregator.GetCosts(ctx, filter)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportFormatJSON:
		if records == nil {
			records = []CostRecord{}
		}
		return json.MarshalIndent(records, "", "  ")
	case ExportFormatCSV:
		return exportCSV(records)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// exportCSV exports records as CSV
func exportCSV(records []CostRecord) ([]byte, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	header := []string{
		"ID", "Timestamp", "Run", "Purpose", "Provider", "Model",
		"Prompt Tokens", "Completion Tokens", "Currency",
		"Cost Input", "Cost Output", "Cost Total",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, record := range records {
		row := []string{
			strconv.FormatInt(record.ID, 10),
			record.Timestamp.Format(time.RFC3339),
			record.RunID,
			record.Purpose,
			record.Provider,
			record.Model,
			strconv.Itoa(record.PromptTokens),
			strconv.Itoa(record.CompletionTokens),
			record.Currency,
			fmt.Sprintf("%.6f", record.CostInput),
			fmt.Sprintf("%.6f", record.CostOutput),
			fmt.Sprintf("%.6f", record.CostTotal),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return []byte(buf.String()), writer.Error()
}

// Close closes the manager
func (m *Manager) Close() error {
	return m.aggregator.Close()
}
