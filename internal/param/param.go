package param

import (
	"math"
	"math/rand/v2"
)

// Kind selects how values for a dimension are generated and snapped.
type Kind string

const (
	// Continuous dimensions take any real value inside their bounds.
	Continuous Kind = "continuous"
	// Discrete dimensions only take values on the Min + k*Step grid.
	Discrete Kind = "discrete"
)

// SamplingMode selects how the mutation standard deviation is derived.
type SamplingMode string

const (
	// Fixed keeps the deviation a constant fraction of the bounds width,
	// annealed only by the per-generation shrink ratio.
	Fixed SamplingMode = "fixed"
	// Scaled additionally widens the deviation for lower-ranked parents,
	// so weaker elites explore more.
	Scaled SamplingMode = "scaled"
)

// Limits are optional hard clipping bounds applied to every generated or
// mutated value, independent of the initial seeding bounds.
type Limits struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Spec defines one optimizable dimension: its kind, seeding bounds,
// discretization grid, hard limits, and sampling behavior.
//
// Bounds (Min, Max) define the domain random seeds are drawn from; Limits,
// if set, clip all generated and mutated values regardless of how far the
// Gaussian kernel reaches.
type Spec struct {
	Name      string       `json:"name" yaml:"name"`
	Kind      Kind         `json:"kind" yaml:"kind"`
	Min       float64      `json:"min" yaml:"min"`
	Max       float64      `json:"max" yaml:"max"`
	Step      float64      `json:"step,omitempty" yaml:"step,omitempty"`
	Limits    *Limits      `json:"limits,omitempty" yaml:"limits,omitempty"`
	Mode      SamplingMode `json:"mode" yaml:"mode"`
	Normalize bool         `json:"normalize" yaml:"normalize"`
}

// NewSpec builds a validated Spec. It returns a ConfigError if the bounds
// are not strictly ascending, a discrete spec has no positive step, or the
// limits are inconsistent with the bounds.
func NewSpec(name string, kind Kind, min, max, step float64, limits *Limits, mode SamplingMode, normalize bool) (*Spec, error) {
	s := &Spec{
		Name:      name,
		Kind:      kind,
		Min:       min,
		Max:       max,
		Step:      step,
		Limits:    limits,
		Mode:      mode,
		Normalize: normalize,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the structural invariants of the spec.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return &ConfigError{Param: s.Name, Field: "name", Reason: "cannot be empty"}
	}
	if s.Kind != Continuous && s.Kind != Discrete {
		return &ConfigError{Param: s.Name, Field: "kind", Reason: "must be continuous or discrete"}
	}
	if s.Mode != Fixed && s.Mode != Scaled {
		return &ConfigError{Param: s.Name, Field: "mode", Reason: "must be fixed or scaled"}
	}
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) {
		return &ConfigError{Param: s.Name, Field: "bounds", Reason: "cannot be NaN"}
	}
	if s.Min >= s.Max {
		return &ConfigError{Param: s.Name, Field: "bounds", Reason: "min must be strictly less than max"}
	}
	if s.Kind == Discrete && s.Step <= 0 {
		return &ConfigError{Param: s.Name, Field: "step", Reason: "discrete specs require a positive step"}
	}
	if s.Limits != nil {
		if s.Limits.Lo >= s.Limits.Hi {
			return &ConfigError{Param: s.Name, Field: "limits", Reason: "must be in ascending order"}
		}
		if s.Limits.Lo > s.Min || s.Limits.Hi < s.Max {
			return &ConfigError{Param: s.Name, Field: "limits", Reason: "bounds must lie within limits"}
		}
		if s.Kind == Discrete && s.Limits.Hi-s.Limits.Lo < s.Step {
			return &ConfigError{Param: s.Name, Field: "limits", Reason: "narrower than a single sampling step"}
		}
	}
	if s.Normalize {
		lo, hi := s.clipRange()
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return &ConfigError{Param: s.Name, Field: "normalize", Reason: "cannot normalize over infinite limits"}
		}
	}
	return nil
}

// Width returns the width of the seeding bounds.
func (s *Spec) Width() float64 { return s.Max - s.Min }

// clipRange returns the hard clipping interval: the limits when set,
// the seeding bounds otherwise.
func (s *Spec) clipRange() (lo, hi float64) {
	if s.Limits != nil {
		return s.Limits.Lo, s.Limits.Hi
	}
	return s.Min, s.Max
}

// Sample draws a uniform random seed value inside the bounds. Discrete
// specs pick a uniform grid point so every value lies exactly on the
// Min + k*Step grid.
func (s *Spec) Sample(rng *rand.Rand) float64 {
	if s.Kind == Discrete {
		n := int(math.Floor((s.Max-s.Min)/s.Step)) + 1
		return s.Min + float64(rng.IntN(n))*s.Step
	}
	return s.Min + rng.Float64()*s.Width()
}

// Mutate produces a child value from a parent value: a Gaussian draw
// centered at the parent with the given standard deviation, clipped to the
// hard limits (or bounds), then snapped to the grid for discrete specs.
//
// When Normalize is set the draw happens in [0,1]-normalized space over the
// clip range, with the deviation rescaled accordingly, and is denormalized
// before clipping.
func (s *Spec) Mutate(parent, stdDev float64, rng *rand.Rand) float64 {
	var v float64
	if s.Normalize {
		lo, hi := s.clipRange()
		span := hi - lo
		nv := s.norm(parent) + rng.NormFloat64()*(stdDev/span)
		v = nv*span + lo
	} else {
		v = parent + rng.NormFloat64()*stdDev
	}
	return s.Clip(v)
}

// Clip clamps a value to the hard limits (or bounds) and snaps discrete
// values onto the step grid.
func (s *Spec) Clip(v float64) float64 {
	lo, hi := s.clipRange()
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	if s.Kind == Discrete {
		v = s.snap(v, lo, hi)
	}
	return v
}

// snap rounds v to the nearest grid point anchored at Min, keeping the
// result inside [lo, hi].
func (s *Spec) snap(v, lo, hi float64) float64 {
	k := math.Round((v - s.Min) / s.Step)
	g := s.Min + k*s.Step
	for g < lo {
		g += s.Step
	}
	for g > hi {
		g -= s.Step
	}
	return g
}

// norm maps a value into [0,1] over the clip range (min-max feature
// scaling, as used for normalized sampling).
func (s *Spec) norm(v float64) float64 {
	lo, hi := s.clipRange()
	return (v - lo) / (hi - lo)
}
