package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snow-ghost/skilltune/history"
)

var historyFlags struct {
	runID   string
	backend string
	results bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the score history of past runs",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.runID, "run", "", "Only show this run")
	f.StringVar(&historyFlags.backend, "history", "", "History backend: json or sqlite")
	f.BoolVar(&historyFlags.results, "results", false, "Also print per-case results")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if historyFlags.backend != "" {
		cfg.HistoryBackend = historyFlags.backend
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if sqlite, ok := store.(*history.SQLiteStore); ok && historyFlags.runID == "" {
		runs, err := sqlite.Runs(cmd.Context())
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		fmt.Fprintf(out, "Runs (most recent first): %d\n", len(runs))
		for _, id := range runs {
			fmt.Fprintf(out, "  %s\n", id)
		}
	}

	iterations, err := store.List(cmd.Context(), historyFlags.runID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(iterations) == 0 {
		fmt.Fprintln(out, "No iterations recorded.")
		return nil
	}
	history.Table(out, iterations)
	if historyFlags.results {
		for _, it := range iterations {
			printIteration(out, it)
		}
	}
	return nil
}
