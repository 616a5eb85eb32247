package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snow-ghost/skilltune/pkg/accounting"
)

var costsFlags struct {
	runID  string
	format string
	top    int
}

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show or export the completion cost ledger",
	RunE:  runCosts,
}

func init() {
	f := costsCmd.Flags()
	f.StringVar(&costsFlags.runID, "run", "", "Only this run; with no run, list the most expensive runs")
	f.StringVar(&costsFlags.format, "format", "", "Export records as json or csv instead of a summary")
	f.IntVar(&costsFlags.top, "top", 10, "Number of runs to list")
}

func runCosts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Accounting.UseSQLite {
		return fmt.Errorf("cost ledger is in memory only; enable accounting.use_sqlite")
	}
	ledger, err := newLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if costsFlags.format != "" {
		data, err := ledger.ExportCosts(ctx, accounting.CostFilter{RunID: costsFlags.runID}, accounting.ExportFormat(costsFlags.format))
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if costsFlags.runID == "" {
		runs, err := ledger.GetTopRuns(ctx, costsFlags.top)
		if err != nil {
			return err
		}
		for _, g := range runs {
			fmt.Fprintf(out, "%-36s  %10.4f %s  %d requests\n", g.GroupValue, g.Summary.TotalCost, g.Summary.Currency, g.Summary.TotalRecords)
		}
		return nil
	}

	groups, err := ledger.GetCostsByPurpose(ctx, costsFlags.runID)
	if err != nil {
		return err
	}
	for _, g := range groups {
		fmt.Fprintf(out, "%-10s  %10.4f %s  %d requests  %d/%d tokens\n", g.GroupValue, g.Summary.TotalCost, g.Summary.Currency,
			g.Summary.TotalRecords, g.Summary.TotalPromptTokens, g.Summary.TotalCompletionTokens)
	}
	budget, err := ledger.GetBudgetInfo(ctx, costsFlags.runID, cfg.Accounting.Budget, cfg.Accounting.Currency)
	if err != nil {
		return err
	}
	if budget.Amount > 0 {
		fmt.Fprintf(out, "Budget: %.4f of %.4f %s used\n", budget.Used, budget.Amount, budget.Currency)
	}
	return nil
}
