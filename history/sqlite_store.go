package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/snow-ghost/skilltune/core"
)

// SQLiteStore keeps iterations in a single table. Results and updates are
// stored as JSON columns so a row round-trips without loss.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS iterations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		iteration INTEGER NOT NULL,
		avg_score REAL NOT NULL,
		validate_pass_rate REAL NOT NULL,
		decision TEXT NOT NULL,
		reason TEXT NOT NULL,
		results TEXT NOT NULL,
		skills_updates TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_iterations_run ON iterations(run_id);
	`
	_, err := s.db.Exec(query)
	return err
}

// Append inserts it.
func (s *SQLiteStore) Append(ctx context.Context, it core.TuningIteration) error {
	results, err := json.Marshal(it.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	updates, err := json.Marshal(it.SkillUpdates)
	if err != nil {
		return fmt.Errorf("failed to marshal updates: %w", err)
	}

	query := `
	INSERT INTO iterations (
		run_id, iteration, avg_score, validate_pass_rate, decision, reason,
		results, skills_updates, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		it.RunID,
		it.Iteration,
		it.AvgScore,
		it.ValidatePassRate,
		it.Decision,
		it.Reason,
		string(results),
		string(updates),
		it.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert iteration: %w", err)
	}
	return nil
}

// List returns the iterations of runID (all runs when empty) in insertion order.
func (s *SQLiteStore) List(ctx context.Context, runID string) ([]core.TuningIteration, error) {
	query := `
	SELECT run_id, iteration, avg_score, validate_pass_rate, decision, reason,
		results, skills_updates, timestamp
	FROM iterations`
	var args []interface{}
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query iterations: %w", err)
	}
	defer rows.Close()

	var out []core.TuningIteration
	for rows.Next() {
		var (
			it               core.TuningIteration
			results, updates string
			ts               string
		)
		if err := rows.Scan(&it.RunID, &it.Iteration, &it.AvgScore, &it.ValidatePassRate,
			&it.Decision, &it.Reason, &results, &updates, &ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(results), &it.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results of iteration %d: %w", it.Iteration, err)
		}
		if err := json.Unmarshal([]byte(updates), &it.SkillUpdates); err != nil {
			return nil, fmt.Errorf("failed to decode updates of iteration %d: %w", it.Iteration, err)
		}
		if it.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Runs lists the distinct run ids, most recent first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM iterations GROUP BY run_id ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
