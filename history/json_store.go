// Package history persists tuning iterations and renders the score history.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/snow-ghost/skilltune/core"
)

const (
	fileTimeLayout = "20060102_150405"
	runIDSuffix    = 8
)

// JSONStore writes one indented file per iteration:
// <dir>/iteration_<n>_<YYYYMMDD_HHMMSS>_<run>.json, where <run> is the first
// runIDSuffix characters of the run ID. Files are never overwritten.
type JSONStore struct {
	dir string
	now func() time.Time
}

func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir, now: time.Now}
}

// FileName returns the file name of one iteration record. The run suffix is
// omitted when runID is empty.
func FileName(iteration int, runID string, at time.Time) string {
	name := fmt.Sprintf("iteration_%d_%s", iteration, at.Format(fileTimeLayout))
	runID = strings.ReplaceAll(strings.ReplaceAll(runID, "/", ""), "\\", "")
	if len(runID) > runIDSuffix {
		runID = runID[:runIDSuffix]
	}
	if runID != "" {
		name += "_" + runID
	}
	return name + ".json"
}

// Append writes it to a new file.
func (s *JSONStore) Append(ctx context.Context, it core.TuningIteration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	at := it.Timestamp
	if at.IsZero() {
		at = s.now()
	}
	data, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal iteration: %w", err)
	}
	path := filepath.Join(s.dir, FileName(it.Iteration, it.RunID, at))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create iteration file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write iteration: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write iteration: %w", err)
	}
	return nil
}

// List reads every iteration file, filtered by runID when it is not empty,
// ordered by timestamp then iteration.
func (s *JSONStore) List(ctx context.Context, runID string) ([]core.TuningIteration, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "iteration_*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	var out []core.TuningIteration
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		var it core.TuningIteration
		if err := json.Unmarshal(data, &it); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p, err)
		}
		if runID != "" && !strings.EqualFold(it.RunID, runID) {
			continue
		}
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Iteration < out[j].Iteration
	})
	return out, nil
}
