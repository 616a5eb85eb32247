package accounting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryAggregator implements in-memory cost aggregation
type MemoryAggregator struct {
	records []CostRecord
	mu      sync.RWMutex
}

// NewMemoryAggregator creates a new in-memory aggregator
func NewMemoryAggregator() *MemoryAggregator {
	return &MemoryAggregator{
		records: make([]CostRecord, 0),
	}
}

// RecordCost records a cost
func (m *MemoryAggregator) RecordCost(ctx context.Context, record CostRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	record.ID = int64(len(m.records) + 1)

	m.records = append(m.records, record)
	return nil
}

// GetCosts retrieves costs with filters, oldest first
func (m *MemoryAggregator) GetCosts(ctx context.Context, filter CostFilter) ([]CostRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []CostRecord
	for _, record := range m.records {
		if matchesFilter(record, filter) {
			filtered = append(filtered, record)
		}
		if filter.Limit > 0 && len(filtered) == filter.Limit {
			break
		}
	}
	return filtered, nil
}

// GetCostSummary gets cost summary with filters
func (m *MemoryAggregator) GetCostSummary(ctx context.Context, filter CostFilter) (CostSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := CostSummary{Currency: "USD"}
	for _, record := range m.records {
		if matchesFilter(record, filter) {
			addToSummary(&summary, record)
		}
	}
	return summary, nil
}

// GetGroupedCosts sums costs per value of groupBy, most expensive first
func (m *MemoryAggregator) GetGroupedCosts(ctx context.Context, filter CostFilter, groupBy string) ([]CostGroup, error) {
	if !validGroupBy(groupBy) {
		return nil, fmt.Errorf("unsupported group by field: %q", groupBy)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	index := make(map[string]int)
	var groups []CostGroup
	for _, record := range m.records {
		if !matchesFilter(record, filter) {
			continue
		}
		value := groupValue(record, groupBy)
		i, ok := index[value]
		if !ok {
			i = len(groups)
			index[value] = i
			groups = append(groups, CostGroup{GroupBy: groupBy, GroupValue: value, Summary: CostSummary{Currency: "USD"}})
		}
		addToSummary(&groups[i].Summary, record)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Summary.TotalCost != groups[j].Summary.TotalCost {
			return groups[i].Summary.TotalCost > groups[j].Summary.TotalCost
		}
		return groups[i].GroupValue < groups[j].GroupValue
	})
	return groups, nil
}

// Close is a no-op
func (m *MemoryAggregator) Close() error {
	return nil
}

func addToSummary(summary *CostSummary, record CostRecord) {
	summary.TotalRecords++
	summary.TotalCost += record.CostTotal
	summary.TotalInputCost += record.CostInput
	summary.TotalOutputCost += record.CostOutput
	summary.TotalPromptTokens += int64(record.PromptTokens)
	summary.TotalCompletionTokens += int64(record.CompletionTokens)
	if record.Currency != "" {
		summary.Currency = record.Currency
	}
}

func groupValue(record CostRecord, groupBy string) string {
	switch groupBy {
	case GroupByRun:
		return record.RunID
	case GroupByPurpose:
		return record.Purpose
	case GroupByProvider:
		return record.Provider
	default:
		return record.Model
	}
}

// matchesFilter checks if a record matches the filter
func matchesFilter(record CostRecord, filter CostFilter) bool {
	if filter.RunID != "" && record.RunID != filter.RunID {
		return false
	}
	if filter.Purpose != "" && record.Purpose != filter.Purpose {
		return false
	}
	if filter.Provider != "" && record.Provider != filter.Provider {
		return false
	}
	if filter.Model != "" && record.Model != filter.Model {
		return false
	}
	if filter.Currency != "" && record.Currency != filter.Currency {
		return false
	}
	return true
}
