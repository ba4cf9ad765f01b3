package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/croplab/paddyfield/internal/bench"
	"github.com/croplab/paddyfield/internal/pfa"
	"github.com/croplab/paddyfield/internal/store"
)

var resumeIters int

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume a stored run and extend it",
	Long: `Loads the snapshot for a run, rebinds its objective, and appends more
generations. The extended run reproduces exactly what an uninterrupted run
would have produced.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().IntVar(&resumeIters, "iters", 0, "Number of generations to append (defaults to the run's configured iteration count)")
	resumeCmd.Flags().BoolVar(&noTrace, "no-trace", false, "Skip appending to the trace file")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	runID := args[0]

	snapshotStore, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	snap, err := snapshotStore.LoadSnapshot(runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	if snap.Config.Objective == "" {
		return fmt.Errorf("run %s carries no objective binding; resume it programmatically", runID)
	}
	objective, err := bench.Lookup(snap.Config.Objective)
	if err != nil {
		return err
	}

	more := resumeIters
	if more <= 0 {
		more = snap.Config.Iterations
	}

	var runner *pfa.Runner
	var trace *store.TraceWriter

	onGeneration := func(g *pfa.Generation) {
		stats := g.Stats()
		if trace != nil {
			best := g.Best()
			entry := store.TraceEntry{
				Generation:  g.Index,
				MaxFitness:  stats.MaxFitness,
				MeanFitness: stats.MeanFitness,
				Size:        stats.Size,
				Timestamp:   time.Now(),
				BestValues:  best.Values,
			}
			if err := trace.Write(entry); err != nil {
				slog.Error("failed to write trace entry", "generation", g.Index, "error", err)
			}
		}
		freshSnap, err := runner.Snapshot()
		if err != nil {
			slog.Error("failed to capture snapshot", "generation", g.Index, "error", err)
			return
		}
		if err := snapshotStore.SaveSnapshot(runID, freshSnap); err != nil {
			slog.Error("failed to save snapshot", "generation", g.Index, "error", err)
		}
	}

	runner, err = pfa.Recover(snap, objective.Eval, pfa.WithOnGeneration(onGeneration))
	if err != nil {
		return fmt.Errorf("failed to recover run %s: %w", runID, err)
	}

	if !noTrace {
		trace, err = store.NewTraceWriter(dataDir, runID, true)
		if err != nil {
			return err
		}
		defer trace.Close()
	}

	slog.Info("resuming run",
		"run_id", runID,
		"objective", objective.Name,
		"completed", runner.Generations(),
		"more", more,
	)

	start := time.Now()
	extErr := runner.Extend(more)
	elapsed := time.Since(start)

	if extErr != nil {
		if !errors.Is(extErr, pfa.ErrEvaluation) {
			return extErr
		}
		slog.Warn("extension stopped early on evaluation failure", "error", extErr)
	}

	best, bestGen := runner.Best()
	slog.Info("extension complete",
		"run_id", runID,
		"generations", runner.Generations(),
		"best_fitness", best.Fitness,
		"best_generation", bestGen,
		"elapsed", elapsed,
	)

	fmt.Printf("Run %s: extended to %d generation(s) in %s\n", runID, runner.Generations(), elapsed.Round(time.Millisecond))
	fmt.Printf("Best fitness %.6f at generation %d: %v\n", best.Fitness, bestGen, best.Values)
	return nil
}
