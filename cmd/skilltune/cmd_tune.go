package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/snow-ghost/skilltune/artifact"
	"github.com/snow-ghost/skilltune/core"
	"github.com/snow-ghost/skilltune/corpus"
	"github.com/snow-ghost/skilltune/history"
	"github.com/snow-ghost/skilltune/llm"
	"github.com/snow-ghost/skilltune/pkg/accounting"
	"github.com/snow-ghost/skilltune/skills"
	"github.com/snow-ghost/skilltune/tuner"
)

var tuneFlags struct {
	maxIterations int
	target        float64
	history       string
	metricsAddr   string
	outputDir     string
}

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Run the tuning loop over the training corpus",
	RunE:  runTune,
}

func init() {
	f := tuneCmd.Flags()
	f.IntVar(&tuneFlags.maxIterations, "max-iterations", 0, "Maximum iterations (default from config: 5)")
	f.Float64Var(&tuneFlags.target, "target", 0, "Target average score (default from config: 0.85)")
	f.StringVar(&tuneFlags.history, "history", "", "History backend: json or sqlite")
	f.StringVar(&tuneFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.StringVar(&tuneFlags.outputDir, "out", "", "Directory for generated artifacts")
}

func runTune(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if tuneFlags.maxIterations > 0 {
		cfg.Tuning.MaxIterations = tuneFlags.maxIterations
	}
	if tuneFlags.target > 0 {
		cfg.Tuning.Target = tuneFlags.target
	}
	if tuneFlags.history != "" {
		cfg.HistoryBackend = tuneFlags.history
	}
	if tuneFlags.metricsAddr != "" {
		cfg.MetricsAddr = tuneFlags.metricsAddr
	}
	if tuneFlags.outputDir != "" {
		cfg.OutputDir = tuneFlags.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cases, err := corpus.Load(cfg.DataDir)
	if err != nil {
		return err
	}

	obs, reg, err := newObservability(cfg)
	if err != nil {
		return err
	}
	defer shutdown(obs)

	ledger, err := newLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	completer, err := newCompleter(cfg, ledger, obs)
	if err != nil {
		return err
	}
	eval, err := newEvaluator(cfg, obs)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := tuner.New(cfg.Tuning, tuner.Deps{
		Corpus:    cases,
		Generator: llm.NewGenerator(completer),
		Reviser:   llm.NewReviser(completer),
		Scorer:    eval,
		Skills:    skills.NewFileStore(cfg.SkillPath),
		Artifacts: artifact.NewFSStore(cfg.OutputDir),
		History:   store,
		Obs:       obs,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	t.OnIteration(func(it core.TuningIteration) {
		printIteration(out, it)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var report tuner.Report
	g, gctx := errgroup.WithContext(ctx)
	runCtx, finish := context.WithCancel(gctx)
	if cfg.MetricsAddr != "" {
		srv := newMetricsServer(cfg.MetricsAddr, reg, obs.GetLogger())
		g.Go(func() error { return srv.Run(runCtx) })
	}
	g.Go(func() error {
		defer finish()
		var err error
		report, err = t.Run(runCtx)
		return err
	})
	runErr := g.Wait()

	fmt.Fprintln(out)
	history.Table(out, report.Iterations)
	if report.RunID != "" {
		fmt.Fprintf(out, "Run:        %s\n", report.RunID)
		fmt.Fprintf(out, "State:      %s\n", report.FinalState)
		if report.Best.Iteration > 0 {
			fmt.Fprintf(out, "Best:       iteration %d, score %s, pass rate %s\n",
				report.Best.Iteration, history.Percent(report.Best.Score), history.Percent(report.Best.ValidatePassRate))
		}
		fmt.Fprintf(out, "Skill:      %s\n", cfg.SkillPath)
		printRunCost(cmd.Context(), out, ledger, report.RunID)
	}

	if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		return fmt.Errorf("tuning interrupted: %w", runErr)
	}
	return runErr
}

func printIteration(w io.Writer, it core.TuningIteration) {
	fmt.Fprintf(w, "\nIteration %d\n", it.Iteration)
	history.ResultsTable(w, it.Results)
	fmt.Fprintf(w, "Average score: %s  Validate pass rate: %s\n", history.Percent(it.AvgScore), history.Percent(it.ValidatePassRate))
	fmt.Fprintf(w, "Decision: %s (%s)\n", it.Decision, it.Reason)
	for _, u := range it.SkillUpdates {
		fmt.Fprintf(w, "  - %s\n", u)
	}
}

func printRunCost(ctx context.Context, w io.Writer, ledger *accounting.Manager, runID string) {
	summary, err := ledger.GetCostSummary(ctx, accounting.CostFilter{RunID: runID})
	if err != nil || summary.TotalRecords == 0 {
		return
	}
	fmt.Fprintf(w, "Cost:       %.4f %s over %d requests\n", summary.TotalCost, summary.Currency, summary.TotalRecords)
}
