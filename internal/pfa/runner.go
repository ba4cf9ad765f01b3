package pfa

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/croplab/paddyfield/internal/param"
)

// EvalFunc is the opaque evaluation capability: one candidate vector in
// (values ordered per the parameter space), one fitness out, higher is
// better. It must be a pure function of its input for recover/extend
// reproducibility to hold.
type EvalFunc func(values []float64) (float64, error)

// Runner orchestrates the paddy field algorithm: it owns the run history,
// the RNG state, and the evaluation-function binding, and advances the
// optimization generation by generation.
//
// A Runner is not safe for concurrent Run/Extend calls; a reentrancy guard
// rejects overlapping calls with ErrBusy.
type Runner struct {
	id       string
	space    *param.Space
	eval     EvalFunc
	cfg      Config
	strategy Strategy

	history []*Generation
	pcg     *rand.PCG
	rng     *rand.Rand

	onGeneration func(*Generation)
	busy         atomic.Bool
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithOnGeneration registers a hook invoked after each generation is
// evaluated, ranked, and appended to history. Use it to flush traces or
// snapshots at generation boundaries, where the run is always resumable.
func WithOnGeneration(fn func(*Generation)) Option {
	return func(r *Runner) { r.onGeneration = fn }
}

// WithID overrides the generated run ID, used when recovering a snapshot.
func WithID(id string) Option {
	return func(r *Runner) { r.id = id }
}

// NewRunner builds a fresh Runner over the given space and evaluation
// function. The configuration is validated up front; no evaluation happens
// until Run is called.
func NewRunner(space *param.Space, eval EvalFunc, cfg Config, opts ...Option) (*Runner, error) {
	if space == nil || space.Dim() == 0 {
		return nil, &ConfigError{Field: "space", Reason: "requires at least one parameter"}
	}
	if eval == nil {
		return nil, &ConfigError{Field: "eval", Reason: "evaluation function is required"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := newStrategy(cfg.PaddyType)
	if err != nil {
		return nil, err
	}

	pcg := rand.NewPCG(uint64(cfg.RandSeed), uint64(cfg.RandSeed)*0x9e3779b97f4a7c15)
	r := &Runner{
		id:       uuid.New().String(),
		space:    space,
		eval:     eval,
		cfg:      cfg,
		strategy: strategy,
		pcg:      pcg,
		rng:      rand.New(pcg),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ID returns the run identifier.
func (r *Runner) ID() string { return r.id }

// Config returns the run configuration.
func (r *Runner) Config() Config { return r.cfg }

// Space returns the parameter space the runner optimizes over.
func (r *Runner) Space() *param.Space { return r.space }

// Generations returns how many generations have completed, including the
// random seeding generation.
func (r *Runner) Generations() int { return len(r.history) }

// History returns the append-only generation history. Callers must not
// mutate the returned slice.
func (r *Runner) History() []*Generation { return r.history }

// Generation returns the generation at index i.
func (r *Runner) Generation(i int) *Generation { return r.history[i] }

// Best returns the fittest seed seen across the whole history and the
// index of the generation that produced it. Ties go to the earliest seed.
func (r *Runner) Best() (Seed, int) {
	best := Seed{Fitness: math.Inf(-1)}
	gen := -1
	for _, g := range r.history {
		if s := g.Best(); s.Fitness > best.Fitness {
			best = s
			gen = g.Index
		}
	}
	return best, gen
}

// Run executes the algorithm for the given number of iterations. A fresh
// runner first sows generation 0 with yt uniform random seeds; subsequent
// generations are produced by selection and Gaussian resampling around the
// elites. On an EvaluationError the run stops early with history preserved
// up to the last completed generation.
func (r *Runner) Run(iterations int) error {
	if !r.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer r.busy.Store(false)

	if iterations < 1 {
		return &ConfigError{Field: "iterations", Reason: "must be a positive integer"}
	}

	requested := len(r.history) + iterations
	if len(r.history) == 0 {
		requested++ // generation 0 is sown first
		if err := r.sow(requested); err != nil {
			return err
		}
	}
	return r.advance(iterations, requested)
}

// Extend appends additional generations to a previously completed run,
// continuing the RNG stream where it left off. It requires a non-empty
// history.
func (r *Runner) Extend(more int) error {
	if !r.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer r.busy.Store(false)

	if more < 1 {
		return &ConfigError{Field: "iterations", Reason: "must be a positive integer"}
	}
	if len(r.history) == 0 {
		return &ConfigError{Field: "extend", Reason: "requires an existing history; use Run on a fresh runner"}
	}
	return r.advance(more, len(r.history)+more)
}

// sow evaluates generation 0: yt candidates drawn uniformly from the
// parameter space bounds, no parent.
func (r *Runner) sow(requested int) error {
	candidates := make([][]float64, r.cfg.YT)
	for i := range candidates {
		candidates[i] = r.space.Sample(r.rng)
	}
	return r.completeGeneration(0, candidates, nil, requested)
}

// advance produces count further generations on top of the current history.
func (r *Runner) advance(count, requested int) error {
	for i := 0; i < count; i++ {
		prev := r.history[len(r.history)-1]
		genIndex := prev.Index + 1
		candidates, carried := r.strategy.Plan(prev, genIndex, r.space, r.cfg, r.rng)
		if err := r.completeGeneration(genIndex, candidates, carried, requested); err != nil {
			return err
		}
	}
	slog.Info("run complete",
		"run_id", r.id,
		"generations", len(r.history),
		"best_fitness", r.history[len(r.history)-1].Best().Fitness,
	)
	return nil
}

// completeGeneration evaluates the candidates in deterministic order, ranks
// them together with any carried elites, and appends the generation.
func (r *Runner) completeGeneration(genIndex int, candidates [][]float64, carried []Seed, requested int) error {
	seeds := make([]Seed, 0, len(carried)+len(candidates))
	seeds = append(seeds, carried...)
	for _, values := range candidates {
		fitness, err := r.evaluate(values)
		if err != nil {
			evalErr := &EvaluationError{
				Generation: genIndex,
				Candidate:  values,
				Completed:  len(r.history),
				Requested:  requested,
				Err:        err,
			}
			slog.Error("evaluation failed, stopping run",
				"run_id", r.id,
				"generation", genIndex,
				"candidate", values,
				"completed", evalErr.Completed,
				"requested", evalErr.Requested,
				"error", err,
			)
			return evalErr
		}
		seeds = append(seeds, Seed{Values: values, Fitness: fitness})
	}

	gen := newGeneration(genIndex, seeds)
	r.history = append(r.history, gen)

	stats := gen.Stats()
	slog.Debug("generation complete",
		"run_id", r.id,
		"generation", genIndex,
		"size", stats.Size,
		"max_fitness", stats.MaxFitness,
		"mean_fitness", stats.MeanFitness,
	)
	if r.onGeneration != nil {
		r.onGeneration(gen)
	}
	return nil
}

// evaluate invokes the evaluation function once, applying the configured
// timeout and rejecting non-finite results.
func (r *Runner) evaluate(values []float64) (float64, error) {
	var fitness float64
	var err error

	if r.cfg.EvalTimeout > 0 {
		type result struct {
			fitness float64
			err     error
		}
		done := make(chan result, 1)
		go func() {
			f, e := r.eval(values)
			done <- result{f, e}
		}()
		select {
		case res := <-done:
			fitness, err = res.fitness, res.err
		case <-time.After(r.cfg.EvalTimeout):
			return 0, fmt.Errorf("evaluation timed out after %s", r.cfg.EvalTimeout)
		}
	} else {
		fitness, err = r.eval(values)
	}

	if err != nil {
		return 0, err
	}
	if math.IsNaN(fitness) || math.IsInf(fitness, 0) {
		return 0, fmt.Errorf("evaluation returned non-finite fitness %v", fitness)
	}
	return fitness, nil
}
