package param

import (
	"math/rand/v2"
)

// Space is the ordered search domain: one Spec per dimension. The order is
// significant, it defines the positional layout of every candidate vector
// handed to the evaluation function. A Space is immutable once a runner is
// constructed from it.
type Space struct {
	specs []*Spec
}

// NewSpace builds a validated Space from an ordered list of specs. Names
// must be unique; every spec is re-validated so a Space assembled from
// literals is checked the same way as one built via NewSpec.
func NewSpace(specs ...*Spec) (*Space, error) {
	if len(specs) == 0 {
		return nil, &ConfigError{Field: "space", Reason: "requires at least one parameter"}
	}
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[s.Name]; dup {
			return nil, &ConfigError{Param: s.Name, Field: "name", Reason: "duplicate parameter name"}
		}
		seen[s.Name] = struct{}{}
	}
	out := make([]*Spec, len(specs))
	copy(out, specs)
	return &Space{specs: out}, nil
}

// Dim returns the number of dimensions.
func (sp *Space) Dim() int { return len(sp.specs) }

// Spec returns the spec at position i.
func (sp *Space) Spec(i int) *Spec { return sp.specs[i] }

// Specs returns a copy of the ordered spec list.
func (sp *Space) Specs() []*Spec {
	out := make([]*Spec, len(sp.specs))
	copy(out, sp.specs)
	return out
}

// Names returns the ordered parameter names.
func (sp *Space) Names() []string {
	names := make([]string, len(sp.specs))
	for i, s := range sp.specs {
		names[i] = s.Name
	}
	return names
}

// Sample draws one uniform random candidate vector from the bounds of every
// dimension. This is the generation-0 seeding path.
func (sp *Space) Sample(rng *rand.Rand) []float64 {
	values := make([]float64, len(sp.specs))
	for i, s := range sp.specs {
		values[i] = s.Sample(rng)
	}
	return values
}
