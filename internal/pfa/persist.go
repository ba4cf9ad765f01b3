package pfa

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/croplab/paddyfield/internal/param"
	"github.com/croplab/paddyfield/internal/store"
)

// Snapshot captures the runner's full state: configuration, parameter
// descriptors, flattened history, and the exact RNG state bytes. Recovering
// the snapshot and extending it produces generations bit-for-bit identical
// to an uninterrupted run.
func (r *Runner) Snapshot() (*store.Snapshot, error) {
	rngState, err := r.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to capture rng state: %w", err)
	}

	specs := r.space.Specs()
	space := make([]param.Spec, len(specs))
	for i, s := range specs {
		space[i] = *s
		if s.Limits != nil {
			limits := *s.Limits
			space[i].Limits = &limits
		}
	}

	generations := make([]store.GenerationRecord, len(r.history))
	for i, g := range r.history {
		seeds := make([]store.SeedRecord, len(g.Seeds))
		for j, s := range g.Seeds {
			values := make([]float64, len(s.Values))
			copy(values, s.Values)
			seeds[j] = store.SeedRecord{Values: values, Fitness: s.Fitness}
		}
		generations[i] = store.GenerationRecord{Index: g.Index, Seeds: seeds}
	}

	return &store.Snapshot{
		Schema:  store.SchemaVersion,
		RunID:   r.id,
		SavedAt: time.Now(),
		Config: store.RunConfig{
			Qmax:        r.cfg.Qmax,
			YT:          r.cfg.YT,
			R:           r.cfg.R,
			Iterations:  r.cfg.Iterations,
			RandSeed:    r.cfg.RandSeed,
			PaddyType:   r.cfg.PaddyType,
			Objective:   r.cfg.Objective,
			EvalTimeout: r.cfg.EvalTimeout,
		},
		Space:       space,
		Generations: generations,
		RNGState:    rngState,
	}, nil
}

// Recover reconstructs a Runner from a snapshot, rebinding the evaluation
// function (which is never persisted). The snapshot is validated
// structurally before anything is built, so no partially constructed runner
// is ever observable: schema or consistency problems surface as
// CorruptStateError, an invalid embedded configuration as ConfigError.
func Recover(snap *store.Snapshot, eval EvalFunc, opts ...Option) (*Runner, error) {
	if snap == nil {
		return nil, &store.CorruptStateError{Reason: "nil snapshot"}
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if len(snap.Space) == 0 {
		return nil, &ConfigError{Field: "space", Reason: "snapshot has no parameter space"}
	}
	for _, g := range snap.Generations {
		for _, s := range g.Seeds {
			if len(s.Values) != len(snap.Space) {
				return nil, &ConfigError{Field: "space", Reason: fmt.Sprintf(
					"generation %d holds %d-dimensional seeds for a %d-dimensional space",
					g.Index, len(s.Values), len(snap.Space))}
			}
		}
	}

	specs := make([]*param.Spec, len(snap.Space))
	for i := range snap.Space {
		s := snap.Space[i]
		specs[i] = &s
	}
	space, err := param.NewSpace(specs...)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Qmax:        snap.Config.Qmax,
		YT:          snap.Config.YT,
		R:           snap.Config.R,
		Iterations:  snap.Config.Iterations,
		RandSeed:    snap.Config.RandSeed,
		PaddyType:   snap.Config.PaddyType,
		Objective:   snap.Config.Objective,
		EvalTimeout: snap.Config.EvalTimeout,
	}

	r, err := NewRunner(space, eval, cfg, opts...)
	if err != nil {
		return nil, err
	}
	r.id = snap.RunID

	r.history = make([]*Generation, len(snap.Generations))
	for i, g := range snap.Generations {
		seeds := make([]Seed, len(g.Seeds))
		for j, s := range g.Seeds {
			values := make([]float64, len(s.Values))
			copy(values, s.Values)
			seeds[j] = Seed{Values: values, Fitness: s.Fitness}
		}
		// Stored seeds are already in rank order; keep them verbatim so
		// recovered history is byte-identical to what was saved.
		r.history[i] = &Generation{Index: g.Index, Seeds: seeds}
	}

	pcg := &rand.PCG{}
	if err := pcg.UnmarshalBinary(snap.RNGState); err != nil {
		return nil, &store.CorruptStateError{Reason: "unreadable rng state: " + err.Error()}
	}
	r.pcg = pcg
	r.rng = rand.New(pcg)

	return r, nil
}
