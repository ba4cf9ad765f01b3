package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownObjectives(t *testing.T) {
	for _, name := range []string{"paraboloid", "eggholder", "gramacylee"} {
		obj, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, obj.Name)
		assert.NotNil(t, obj.Eval)
		assert.Len(t, obj.Min, obj.Dim)
		assert.Len(t, obj.Max, obj.Dim)
	}
}

func TestLookupUnknownObjective(t *testing.T) {
	_, err := Lookup("rosenbrock")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rosenbrock")
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"eggholder", "gramacylee", "paraboloid"}, names)
}

func TestParaboloidPeaksAtOrigin(t *testing.T) {
	f, err := Paraboloid([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, f)

	// Every other point scores strictly lower.
	for _, p := range [][]float64{{1, 0}, {0, 1}, {-3, 2}, {5, -7}} {
		v, err := Paraboloid(p)
		require.NoError(t, err)
		assert.Less(t, v, 1.0, "point %v", p)
	}
}

func TestParaboloidDimensionCheck(t *testing.T) {
	_, err := Paraboloid([]float64{1})
	assert.Error(t, err)
	_, err = Paraboloid([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestEggholderKnownOptimum(t *testing.T) {
	// Global maximum of the negated eggholder: about 959.6407 at
	// (512, 404.2319).
	f, err := Eggholder([]float64{512, 404.2319})
	require.NoError(t, err)
	assert.InDelta(t, 959.6407, f, 1e-3)

	elsewhere, err := Eggholder([]float64{0, 0})
	require.NoError(t, err)
	assert.Less(t, elsewhere, f)
}

func TestEggholderDimensionCheck(t *testing.T) {
	_, err := Eggholder([]float64{1})
	assert.Error(t, err)
}

func TestGramacyLeeKnownOptimum(t *testing.T) {
	// Global minimum of the raw function is about -0.869 at x ≈ 0.5486,
	// so the negated maximum is about 0.869.
	f, err := GramacyLee([]float64{0.5486})
	require.NoError(t, err)
	assert.InDelta(t, 0.869, f, 1e-2)

	elsewhere, err := GramacyLee([]float64{2.0})
	require.NoError(t, err)
	assert.Less(t, elsewhere, f)
}

func TestGramacyLeeDimensionCheck(t *testing.T) {
	_, err := GramacyLee([]float64{1, 2})
	assert.Error(t, err)
}
