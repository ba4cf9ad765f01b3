package pfa

import "time"

// Strategy selectors for Config.PaddyType.
const (
	// TypePopulation replaces the whole generation with fresh offspring
	// each step.
	TypePopulation = "population"
	// TypeGenerational carries the elites forward unchanged and fills the
	// rest of the generation with offspring.
	TypeGenerational = "generational"
)

// Config holds the run parameters of a paddy field optimization.
type Config struct {
	// Qmax is the elite retention count: the number of top-ranked seeds
	// from a generation that are kept as parents for the next one.
	Qmax int `json:"qmax" yaml:"qmax"`

	// YT is the yield target: the fixed number of seeds evaluated per
	// generation.
	YT int `json:"yt" yaml:"yt"`

	// R is the radius shrink ratio in (0,1). The mutation spread of
	// generation g is the bounds width times R^g, annealing exploration
	// toward exploitation as generations progress.
	R float64 `json:"r" yaml:"r"`

	// Iterations is the number of generations produced after the random
	// seeding generation.
	Iterations int `json:"iterations" yaml:"iterations"`

	// RandSeed seeds the runner-owned RNG. Runs with the same seed,
	// config, and deterministic evaluation function reproduce bit for bit.
	RandSeed int64 `json:"randSeed" yaml:"randSeed"`

	// PaddyType selects the reproduction strategy, TypePopulation or
	// TypeGenerational.
	PaddyType string `json:"paddyType" yaml:"paddyType"`

	// Objective optionally names the evaluation function, recorded in
	// snapshots so a resumed run can rebind the same objective. Opaque to
	// the engine.
	Objective string `json:"objective,omitempty" yaml:"objective,omitempty"`

	// EvalTimeout bounds a single evaluation call when positive. The
	// evaluation function is opaque and may hang; a timeout surfaces as an
	// EvaluationError instead.
	EvalTimeout time.Duration `json:"evalTimeout,omitempty" yaml:"evalTimeout,omitempty"`
}

// Validate checks the configuration, returning a ConfigError on the first
// violation.
func (c Config) Validate() error {
	if c.Qmax < 1 {
		return &ConfigError{Field: "qmax", Reason: "must be a positive integer"}
	}
	if c.YT < 1 {
		return &ConfigError{Field: "yt", Reason: "must be a positive integer"}
	}
	if c.R <= 0 || c.R >= 1 {
		return &ConfigError{Field: "r", Reason: "must be in (0,1)"}
	}
	if c.Iterations < 1 {
		return &ConfigError{Field: "iterations", Reason: "must be a positive integer"}
	}
	if c.PaddyType != TypePopulation && c.PaddyType != TypeGenerational {
		return &ConfigError{Field: "paddyType", Reason: "must be population or generational"}
	}
	if c.EvalTimeout < 0 {
		return &ConfigError{Field: "evalTimeout", Reason: "cannot be negative"}
	}
	return nil
}
