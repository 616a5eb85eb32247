package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/history"
	"github.com/snow-ghost/skilltune/pkg/logging"
	"github.com/snow-ghost/skilltune/testkit"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("SKILLTUNE_CONFIG", "")
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	generated := filepath.Join(dir, "web")
	expected := filepath.Join(dir, "expected")
	require.NoError(t, artifact.WriteSet(generated, testkit.Set(testkit.Resource("aws_vpc", "main"))))
	require.NoError(t, artifact.WriteSet(expected, testkit.Set(testkit.Resource("aws_vpc", "main")+testkit.Resource("aws_subnet", "a"))))
	t.Setenv("TERRAFORM_BIN", filepath.Join(dir, "no-terraform"))

	out := execute(t, "evaluate", "--generated", generated, "--expected", expected)

	assert.Contains(t, out, "Evaluation Results")
	assert.Contains(t, out, "web")
	assert.Contains(t, out, "Missing resources: aws_subnet")
	assert.Contains(t, out, "Validation failed")
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	store := history.NewJSONStore(dir)
	for i, decision := range []string{"accepted", "target_met"} {
		require.NoError(t, store.Append(context.Background(), core.TuningIteration{
			RunID:     "run-1",
			Iteration: i + 1,
			AvgScore:  0.6 + 0.3*float64(i),
			Decision:  decision,
			Reason:    "baseline",
			Timestamp: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}
	t.Setenv("SKILLTUNE_HISTORY_DIR", dir)

	out := execute(t, "history", "--history", "json", "--run", "run-1")

	assert.Contains(t, out, "Score History")
	assert.Contains(t, out, "target_met")
	assert.Contains(t, out, "90.00%")
}

func TestHistoryCommandEmpty(t *testing.T) {
	t.Setenv("SKILLTUNE_HISTORY_DIR", t.TempDir())
	out := execute(t, "history", "--history", "json", "--run", "")
	assert.Contains(t, out, "No iterations recorded.")
}

func TestGenerateRequiresOutForValidate(t *testing.T) {
	t.Setenv("SKILLTUNE_CONFIG", "")
	rootCmd.SetArgs([]string{"generate", "--validate", "a vpc"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--validate requires --out")
	generateFlags.validate = false
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsServerStopsWithContext(t *testing.T) {
	srv := newMetricsServer("127.0.0.1:0", prometheus.NewRegistry(), logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestPrintIteration(t *testing.T) {
	var buf bytes.Buffer
	printIteration(&buf, core.TuningIteration{
		Iteration:    2,
		AvgScore:     0.63,
		Decision:     "accepted",
		Reason:       "score improved",
		SkillUpdates: []string{"pin provider versions"},
	})
	out := buf.String()
	assert.Contains(t, out, "Iteration 2")
	assert.Contains(t, out, "63.00%")
	assert.True(t, strings.Contains(out, "- pin provider versions"))
}
