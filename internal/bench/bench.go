// Package bench provides named benchmark objectives for exercising the
// optimizer from the CLI and tests. Objectives are registered by name so a
// snapshot can record which one to rebind when a run is resumed.
package bench

import (
	"fmt"
	"math"
	"sort"
)

// Objective is a built-in evaluation function with the parameter bounds it
// is conventionally optimized over. Fitness is maximized.
type Objective struct {
	Name string
	// Eval returns the fitness of one candidate vector.
	Eval func(values []float64) (float64, error)
	// Dim is the expected dimensionality.
	Dim int
	// Min and Max are the conventional seeding bounds per dimension.
	Min, Max []float64
}

var registry = map[string]Objective{
	"paraboloid": {
		Name: "paraboloid",
		Eval: Paraboloid,
		Dim:  2,
		Min:  []float64{-5, -7},
		Max:  []float64{5, 3},
	},
	"eggholder": {
		Name: "eggholder",
		Eval: Eggholder,
		Dim:  2,
		Min:  []float64{-512, -512},
		Max:  []float64{512, 512},
	},
	"gramacylee": {
		Name: "gramacylee",
		Eval: GramacyLee,
		Dim:  1,
		Min:  []float64{0.5},
		Max:  []float64{2.5},
	},
}

// Lookup resolves an objective by name.
func Lookup(name string) (Objective, error) {
	obj, ok := registry[name]
	if !ok {
		return Objective{}, fmt.Errorf("unknown objective %q (available: %v)", name, Names())
	}
	return obj, nil
}

// Names returns the registered objective names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paraboloid is the downward paraboloid z = -x^2/7 - y^2/2 + 1 with its
// maximum of 1 at the origin.
func Paraboloid(values []float64) (float64, error) {
	if len(values) != 2 {
		return 0, fmt.Errorf("paraboloid expects 2 values, got %d", len(values))
	}
	x, y := values[0], values[1]
	return -(x*x)/7 - (y*y)/2 + 1, nil
}

// Eggholder is the negated eggholder function, a heavily multimodal 2D
// benchmark whose (maximized) optimum of about 959.64 sits at
// (512, 404.2319) on the [-512, 512] square.
func Eggholder(values []float64) (float64, error) {
	if len(values) != 2 {
		return 0, fmt.Errorf("eggholder expects 2 values, got %d", len(values))
	}
	x, y := values[0], values[1]
	f := -(y+47)*math.Sin(math.Sqrt(math.Abs(y+x/2+47))) -
		x*math.Sin(math.Sqrt(math.Abs(x-(y+47))))
	return -f, nil
}

// GramacyLee is the negated Gramacy & Lee function, a 1D benchmark with
// many local optima on [0.5, 2.5].
func GramacyLee(values []float64) (float64, error) {
	if len(values) != 1 {
		return 0, fmt.Errorf("gramacylee expects 1 value, got %d", len(values))
	}
	x := values[0]
	f := math.Sin(10*math.Pi*x)/(2*x) + math.Pow(x-1, 4)
	return -f, nil
}
