package history

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/snow-ghost/skilltune/core"
)

// Table writes the score history, one row per iteration.
func Table(w io.Writer, iterations []core.TuningIteration) {
	t := newWriter(w, "Score History")
	t.AppendHeader(table.Row{"Iteration", "Avg Score", "Pass Rate", "Decision", "Reason"})
	for _, it := range iterations {
		t.AppendRow(table.Row{it.Iteration, Percent(it.AvgScore), Percent(it.ValidatePassRate), it.Decision, it.Reason})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
}

// ResultsTable writes the per-case scores of one iteration.
func ResultsTable(w io.Writer, results []core.EvaluationResult) {
	t := newWriter(w, "Evaluation Results")
	t.AppendHeader(table.Row{"Case", "Validate", "Resource Match", "Config Match", "Score"})
	for _, r := range results {
		mark := "✗"
		if r.ValidatePassed {
			mark = "✓"
		}
		t.AppendRow(table.Row{r.CaseID, mark, Percent(r.ResourceMatchRate), Percent(r.ConfigSimilarityRate), Percent(r.Score)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
}

func newWriter(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

// Percent formats a rate in [0,1] as "85.00%".
func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
