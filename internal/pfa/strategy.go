package pfa

import (
	"math"
	"math/rand/v2"

	"github.com/croplab/paddyfield/internal/param"
)

// Strategy plans the makeup of the next generation from the previous one:
// which candidate vectors to evaluate and which elite seeds, if any, are
// carried forward unchanged. Strategies form a small closed set selected at
// Runner construction.
type Strategy interface {
	Name() string

	// Plan returns the candidate vectors for generation genIndex in
	// deterministic parent-major, offspring-index-minor order, plus any
	// seeds carried forward without re-evaluation.
	Plan(prev *Generation, genIndex int, space *param.Space, cfg Config, rng *rand.Rand) (candidates [][]float64, carried []Seed)
}

// newStrategy resolves a paddyType selector to its strategy.
func newStrategy(paddyType string) (Strategy, error) {
	switch paddyType {
	case TypePopulation:
		return populationStrategy{}, nil
	case TypeGenerational:
		return generationalStrategy{}, nil
	default:
		return nil, &ConfigError{Field: "paddyType", Reason: "must be population or generational"}
	}
}

// populationStrategy replaces the parent generation entirely: all yt seeds
// of the new generation are freshly sampled offspring.
type populationStrategy struct{}

func (populationStrategy) Name() string { return TypePopulation }

func (populationStrategy) Plan(prev *Generation, genIndex int, space *param.Space, cfg Config, rng *rand.Rand) ([][]float64, []Seed) {
	parents := prev.Elites(cfg.Qmax)
	return sampleOffspring(parents, allocateOffspring(len(parents), cfg.YT), genIndex, space, cfg, rng), nil
}

// generationalStrategy carries the elites into the new generation unchanged
// and fills the remaining slots with offspring, keeping every generation at
// exactly yt seeds.
type generationalStrategy struct{}

func (generationalStrategy) Name() string { return TypeGenerational }

func (generationalStrategy) Plan(prev *Generation, genIndex int, space *param.Space, cfg Config, rng *rand.Rand) ([][]float64, []Seed) {
	parents := prev.Elites(cfg.Qmax)
	carry := len(parents)
	if carry >= cfg.YT {
		// Leave room for at least one offspring so the run keeps moving.
		carry = cfg.YT - 1
	}
	carried := make([]Seed, 0, carry)
	for _, s := range parents[:carry] {
		carried = append(carried, s.clone())
	}
	candidates := sampleOffspring(parents, allocateOffspring(len(parents), cfg.YT-carry), genIndex, space, cfg, rng)
	return candidates, carried
}

// allocateOffspring distributes total offspring slots over parents ranked
// 0..parents-1 using linear rank weights: each parent gets a base share of
// one, the remainder is split proportionally to weight (parents - rank),
// and leftover units go one each to the best ranks. The result is monotone
// non-increasing in rank and sums exactly to total. If there are more
// parents than slots, only the top total parents reproduce.
func allocateOffspring(parents, total int) []int {
	if total <= 0 || parents <= 0 {
		return nil
	}
	if parents > total {
		parents = total
	}
	alloc := make([]int, parents)
	for i := range alloc {
		alloc[i] = 1
	}
	remaining := total - parents
	weightSum := parents * (parents + 1) / 2
	assigned := 0
	for i := range alloc {
		extra := remaining * (parents - i) / weightSum
		alloc[i] += extra
		assigned += extra
	}
	for i := 0; i < remaining-assigned; i++ {
		alloc[i]++
	}
	return alloc
}

// mutationStdDev computes the annealed Gaussian spread for one dimension of
// one parent: the bounds width shrunk by r per generation. Under scaled
// sampling the spread additionally widens with the parent's normalized rank
// so the worst elite explores with twice the deviation of the best.
func mutationStdDev(spec *param.Spec, genIndex, rank, parentCount int, r float64) float64 {
	sd := spec.Width() * math.Pow(r, float64(genIndex))
	if spec.Mode == param.Scaled && parentCount > 1 {
		sd *= 1 + float64(rank)/float64(parentCount-1)
	}
	return sd
}

// sampleOffspring materializes the allocation: for each parent in rank
// order, each of its allocated slots becomes one candidate vector mutated
// dimension-by-dimension around the parent's values.
func sampleOffspring(parents []Seed, alloc []int, genIndex int, space *param.Space, cfg Config, rng *rand.Rand) [][]float64 {
	var candidates [][]float64
	for rank, count := range alloc {
		parent := parents[rank]
		for n := 0; n < count; n++ {
			child := make([]float64, space.Dim())
			for d := 0; d < space.Dim(); d++ {
				spec := space.Spec(d)
				sd := mutationStdDev(spec, genIndex, rank, len(parents), cfg.R)
				child[d] = spec.Mutate(parent.Values[d], sd, rng)
			}
			candidates = append(candidates, child)
		}
	}
	return candidates
}
