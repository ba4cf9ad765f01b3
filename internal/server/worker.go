package server

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/croplab/paddyfield/internal/bench"
	"github.com/croplab/paddyfield/internal/param"
	"github.com/croplab/paddyfield/internal/pfa"
	"github.com/croplab/paddyfield/internal/store"
)

// runJob executes an optimization job in the background. Progress is
// broadcast after every generation, and when snapshotStore is not nil the
// run is snapshotted at each generation boundary so it stays resumable
// across a crash.
func runJob(jm *JobManager, snapshotStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}

	slog.Info("starting job", "job_id", jobID, "objective", job.Objective)

	runner, err := buildRunner(jm, snapshotStore, job)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	jm.UpdateJob(jobID, func(j *Job) { j.Runner = runner })

	return drive(jm, jobID, func() error { return runner.Run(job.Config.Iterations) })
}

// extendJob appends more generations to a completed job's runner.
func extendJob(jm *JobManager, jobID string, more int) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	runner := job.Runner
	if runner == nil {
		err := fmt.Errorf("job has no runner to extend: %s", jobID)
		markJobFailed(jm, jobID, err)
		return err
	}

	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.EndTime = nil
	})
	slog.Info("extending job", "job_id", jobID, "more", more)

	return drive(jm, jobID, func() error { return runner.Extend(more) })
}

// drive runs one engine call to completion and records the outcome. An
// EvaluationError stops the run early but the accumulated history remains
// valid, so the job completes at a shorter length rather than failing.
func drive(jm *JobManager, jobID string, call func() error) error {
	err := call()
	endTime := time.Now()

	if err != nil && !errors.Is(err, pfa.ErrEvaluation) {
		markJobFailed(jm, jobID, err)
		return err
	}

	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.EndTime = &endTime
		if err != nil {
			j.Error = err.Error()
		}
	})

	job, _ := jm.GetJob(jobID)
	slog.Info("job completed",
		"job_id", jobID,
		"generations", job.Generations,
		"best_fitness", job.BestFitness,
		"early_stop", err != nil,
	)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:       jobID,
		State:       StateCompleted,
		Generation:  job.Generations - 1,
		BestFitness: job.BestFitness,
		Timestamp:   time.Now(),
	})
	return err
}

// buildRunner assembles space, objective, and runner for a job, wiring the
// per-generation hook that keeps job state, events, and snapshots fresh.
func buildRunner(jm *JobManager, snapshotStore store.Store, job *Job) (*pfa.Runner, error) {
	objective, err := bench.Lookup(job.Objective)
	if err != nil {
		return nil, err
	}

	var space *param.Space
	if len(job.RunFile.Space) > 0 {
		space, err = job.RunFile.BuildSpace()
	} else {
		space, err = defaultSpace(objective)
	}
	if err != nil {
		return nil, err
	}

	cfg := job.Config
	cfg.Objective = objective.Name

	var runner *pfa.Runner
	onGeneration := func(g *pfa.Generation) {
		stats := g.Stats()
		best, _ := runner.Best()
		jm.UpdateJob(job.ID, func(j *Job) {
			j.Generations = g.Index + 1
			j.BestFitness = best.Fitness
			j.BestValues = best.Values
		})
		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:       job.ID,
			State:       StateRunning,
			Generation:  g.Index,
			MaxFitness:  stats.MaxFitness,
			MeanFitness: stats.MeanFitness,
			Size:        stats.Size,
			BestFitness: best.Fitness,
			Timestamp:   time.Now(),
		})
		if snapshotStore != nil {
			snap, err := runner.Snapshot()
			if err != nil {
				slog.Error("failed to capture snapshot", "job_id", job.ID, "error", err)
				return
			}
			if err := snapshotStore.SaveSnapshot(job.ID, snap); err != nil {
				slog.Error("failed to save snapshot", "job_id", job.ID, "error", err)
			}
		}
	}

	runner, err = pfa.NewRunner(space, objective.Eval, cfg,
		pfa.WithID(job.ID),
		pfa.WithOnGeneration(onGeneration),
	)
	if err != nil {
		return nil, err
	}
	return runner, nil
}

// defaultSpace derives a continuous, fixed-mode space from an objective's
// conventional bounds.
func defaultSpace(obj bench.Objective) (*param.Space, error) {
	specs := make([]*param.Spec, obj.Dim)
	for i := 0; i < obj.Dim; i++ {
		spec, err := param.NewSpec(
			fmt.Sprintf("x%d", i),
			param.Continuous,
			obj.Min[i], obj.Max[i], 0,
			nil, param.Fixed, false,
		)
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}
	return param.NewSpace(specs...)
}

// markJobFailed marks a job as failed with an error message.
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("job failed", "job_id", jobID, "error", err)
}
