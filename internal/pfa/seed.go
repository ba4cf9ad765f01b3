package pfa

import "sort"

// Seed is one candidate solution: a parameter vector and its fitness.
// Seeds are immutable once evaluated; a child is always a new Seed.
type Seed struct {
	Values  []float64 `json:"values"`
	Fitness float64   `json:"fitness"`
}

// clone returns a deep copy so carried elites never alias history.
func (s Seed) clone() Seed {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	return Seed{Values: values, Fitness: s.Fitness}
}

// Stats are the derived aggregates of a fully evaluated generation.
type Stats struct {
	MaxFitness  float64 `json:"maxFitness"`
	MeanFitness float64 `json:"meanFitness"`
	Size        int     `json:"size"`
}

// Generation is one ranked batch of seeds produced and evaluated together.
// Seeds are ordered by descending fitness; a seed's rank is its position.
// Equal-fitness seeds keep their relative insertion order.
type Generation struct {
	Index int    `json:"index"`
	Seeds []Seed `json:"seeds"`
}

// newGeneration ranks the evaluated seeds into a Generation. The sort is
// stable so ties preserve evaluation order.
func newGeneration(index int, seeds []Seed) *Generation {
	ranked := make([]Seed, len(seeds))
	copy(ranked, seeds)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})
	return &Generation{Index: index, Seeds: ranked}
}

// Best returns the top-ranked seed.
func (g *Generation) Best() Seed { return g.Seeds[0] }

// Elites returns the top qmax seeds. If qmax exceeds the generation size
// all seeds are returned; selection degrades gracefully to "retain all".
func (g *Generation) Elites(qmax int) []Seed {
	if qmax > len(g.Seeds) {
		qmax = len(g.Seeds)
	}
	return g.Seeds[:qmax]
}

// Stats computes the aggregate statistics of the generation.
func (g *Generation) Stats() Stats {
	if len(g.Seeds) == 0 {
		return Stats{}
	}
	sum := 0.0
	for _, s := range g.Seeds {
		sum += s.Fitness
	}
	return Stats{
		MaxFitness:  g.Seeds[0].Fitness,
		MeanFitness: sum / float64(len(g.Seeds)),
		Size:        len(g.Seeds),
	}
}
