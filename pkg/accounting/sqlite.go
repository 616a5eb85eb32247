package accounting

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteAggregator implements SQLite-based cost aggregation
type SQLiteAggregator struct {
	db *sql.DB
}

// NewSQLiteAggregator creates a new SQLite aggregator
func NewSQLiteAggregator(dbPath string) (*SQLiteAggregator, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	aggregator := &SQLiteAggregator{db: db}
	if err := aggregator.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return aggregator, nil
}

// createTable creates the costs table
func (s *SQLiteAggregator) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS costs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		run_id TEXT NOT NULL,
		purpose TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		currency TEXT NOT NULL,
		cost_input REAL NOT NULL,
		cost_output REAL NOT NULL,
		cost_total REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_costs_run ON costs(run_id);
	CREATE INDEX IF NOT EXISTS idx_costs_model ON costs(model);
	`

	_, err := s.db.Exec(query)
	return err
}

// RecordCost records a cost
func (s *SQLiteAggregator) RecordCost(ctx context.Context, record CostRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	query := `
	INSERT INTO costs (
		timestamp, run_id, purpose, provider, model, prompt_tokens, completion_tokens,
		currency, cost_input, cost_output, cost_total
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.RunID,
		record.Purpose,
		record.Provider,
		record.Model,
		record.PromptTokens,
		record.CompletionTokens,
		record.Currency,
		record.CostInput,
		record.CostOutput,
		record.CostTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cost record: %w", err)
	}
	return nil
}

// GetCosts retrieves costs with filters, oldest first
func (s *SQLiteAggregator) GetCosts(ctx context.Context, filter CostFilter) ([]CostRecord, error) {
	whereClause, args := buildWhereClause(filter)

	query := fmt.Sprintf(`
		SELECT
			id, timestamp, run_id, purpose, provider, model, prompt_tokens, completion_tokens,
			currency, cost_input, cost_output, cost_total
		FROM costs
		%s
		ORDER BY id
	`, whereClause)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CostRecord
	for rows.Next() {
		var (
			record CostRecord
			ts     string
		)
		err := rows.Scan(
			&record.ID,
			&ts,
			&record.RunID,
			&record.Purpose,
			&record.Provider,
			&record.Model,
			&record.PromptTokens,
			&record.CompletionTokens,
			&record.Currency,
			&record.CostInput,
			&record.CostOutput,
			&record.CostTotal,
		)
		if err != nil {
			return nil, err
		}
		record.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp in cost record %d: %w", record.ID, err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetCostSummary gets cost summary with filters
func (s *SQLiteAggregator) GetCostSummary(ctx context.Context, filter CostFilter) (CostSummary, error) {
	whereClause, args := buildWhereClause(filter)

	query := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COALESCE(SUM(cost_total), 0),
			COALESCE(SUM(cost_input), 0),
			COALESCE(SUM(cost_output), 0),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COALESCE(MAX(currency), 'USD')
		FROM costs
		%s
	`, whereClause)

	var summary CostSummary
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&summary.TotalRecords,
		&summary.TotalCost,
		&summary.TotalInputCost,
		&summary.TotalOutputCost,
		&summary.TotalPromptTokens,
		&summary.TotalCompletionTokens,
		&summary.Currency,
	)
	return summary, err
}

// GetGroupedCosts sums costs per value of groupBy, most expensive first
func (s *SQLiteAggregator) GetGroupedCosts(ctx context.Context, filter CostFilter, groupBy string) ([]CostGroup, error) {
	if !validGroupBy(groupBy) {
		return nil, fmt.Errorf("unsupported group by field: %q", groupBy)
	}
	whereClause, args := buildWhereClause(filter)

	// groupBy is one of the whitelisted column names.
	query := fmt.Sprintf(`
		SELECT
			%s,
			COUNT(*),
			COALESCE(SUM(cost_total), 0) AS total_cost,
			COALESCE(SUM(cost_input), 0),
			COALESCE(SUM(cost_output), 0),
			COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0),
			COALESCE(MAX(currency), 'USD')
		FROM costs
		%s
		GROUP BY %s
		ORDER BY total_cost DESC, %s
	`, groupBy, whereClause, groupBy, groupBy)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []CostGroup
	for rows.Next() {
		group := CostGroup{GroupBy: groupBy}
		err := rows.Scan(
			&group.GroupValue,
			&group.Summary.TotalRecords,
			&group.Summary.TotalCost,
			&group.Summary.TotalInputCost,
			&group.Summary.TotalOutputCost,
			&group.Summary.TotalPromptTokens,
			&group.Summary.TotalCompletionTokens,
			&group.Summary.Currency,
		)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

// buildWhereClause builds WHERE clause with filters
func buildWhereClause(filter CostFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Purpose != "" {
		conditions = append(conditions, "purpose = ?")
		args = append(args, filter.Purpose)
	}
	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, filter.Model)
	}
	if filter.Currency != "" {
		conditions = append(conditions, "currency = ?")
		args = append(args, filter.Currency)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// Close closes the aggregator
func (s *SQLiteAggregator) Close() error {
	return s.db.Close()
}
