package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/croplab/paddyfield/internal/bench"
	"github.com/croplab/paddyfield/internal/config"
	"github.com/croplab/paddyfield/internal/param"
	"github.com/croplab/paddyfield/internal/pfa"
	"github.com/croplab/paddyfield/internal/store"
)

var (
	runFilePath string
	itersFlag   int
	seedFlag    int64
	noTrace     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an optimization from a run file",
	Long: `Runs the paddy field algorithm as described by a YAML run file and
persists a resumable snapshot plus a JSONL trace of per-generation statistics.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&runFilePath, "config", "", "Run file path (required)")
	runCmd.Flags().IntVar(&itersFlag, "iters", 0, "Override the run file's iteration count")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "Override the run file's random seed")
	runCmd.Flags().BoolVar(&noTrace, "no-trace", false, "Skip writing the trace file")

	runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	rf, err := config.LoadRunFile(runFilePath)
	if err != nil {
		return err
	}
	if itersFlag > 0 {
		rf.Run.Iterations = itersFlag
	}
	if cmd.Flags().Changed("seed") {
		rf.Run.RandSeed = seedFlag
	}

	objective, err := bench.Lookup(rf.Objective)
	if err != nil {
		return err
	}
	rf.Run.Objective = objective.Name

	space, err := spaceForRun(rf, objective)
	if err != nil {
		return err
	}

	snapshotStore, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	slog.Info("starting optimization",
		"objective", objective.Name,
		"paddy_type", rf.Run.PaddyType,
		"qmax", rf.Run.Qmax,
		"yt", rf.Run.YT,
		"r", rf.Run.R,
		"iterations", rf.Run.Iterations,
		"seed", rf.Run.RandSeed,
	)

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
		snap, err := runner.Snapshot()
		if err != nil {
			slog.Error("failed to capture snapshot", "generation", g.Index, "error", err)
			return
		}
		if err := snapshotStore.SaveSnapshot(runner.ID(), snap); err != nil {
			slog.Error("failed to save snapshot", "generation", g.Index, "error", err)
		}
	}

	runner, err = pfa.NewRunner(space, objective.Eval, rf.Run, pfa.WithOnGeneration(onGeneration))
	if err != nil {
		return err
	}

	if !noTrace {
		trace, err = store.NewTraceWriter(dataDir, runner.ID(), false)
		if err != nil {
			return err
		}
		defer trace.Close()
	}

	start := time.Now()
	runErr := runner.Run(rf.Run.Iterations)
	elapsed := time.Since(start)

	if runErr != nil {
		if !errors.Is(runErr, pfa.ErrEvaluation) {
			return runErr
		}
		// The history up to the last completed generation is intact and
		// already snapshotted, so report the early stop and summarize.
		slog.Warn("run stopped early on evaluation failure", "error", runErr)
	}

	if runner.Generations() == 0 {
		return fmt.Errorf("no generations completed: %w", runErr)
	}

	best, bestGen := runner.Best()
	slog.Info("optimization complete",
		"run_id", runner.ID(),
		"generations", runner.Generations(),
		"best_fitness", best.Fitness,
		"best_generation", bestGen,
		"elapsed", elapsed,
	)

	fmt.Printf("Run %s: %d generation(s) in %s\n", runner.ID(), runner.Generations(), elapsed.Round(time.Millisecond))
	fmt.Printf("Best fitness %.6f at generation %d: %v\n", best.Fitness, bestGen, best.Values)
	return nil
}

// spaceForRun builds the parameter space from the run file, or derives a
// default one from the objective's conventional bounds when the run file
// declares no parameters.
func spaceForRun(rf *config.RunFile, objective bench.Objective) (*param.Space, error) {
	if len(rf.Space) > 0 {
		return rf.BuildSpace()
	}
	specs := make([]*param.Spec, objective.Dim)
	for i := 0; i < objective.Dim; i++ {
		spec, err := param.NewSpec(
			fmt.Sprintf("x%d", i),
			param.Continuous,
			objective.Min[i], objective.Max[i], 0,
			nil, param.Fixed, false,
		)
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}
	return param.NewSpace(specs...)
}
