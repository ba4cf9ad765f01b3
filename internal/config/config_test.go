package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croplab/paddyfield/internal/param"
	"github.com/croplab/paddyfield/internal/pfa"
)

const validRunFile = `
objective: paraboloid
run:
  qmax: 5
  yt: 10
  r: 0.2
  iterations: 5
  randSeed: 20
  paddyType: population
space:
  - name: x
    kind: continuous
    min: -5
    max: 5
    mode: fixed
  - name: y
    kind: discrete
    min: -7
    max: 3
    step: 0.5
    mode: scaled
    limits:
      lo: -10
      hi: 10
`

func TestParseRunFileYAML(t *testing.T) {
	rf, err := ParseRunFileYAML([]byte(validRunFile))
	require.NoError(t, err)

	assert.Equal(t, "paraboloid", rf.Objective)
	assert.Equal(t, 5, rf.Run.Qmax)
	assert.Equal(t, 10, rf.Run.YT)
	assert.Equal(t, 0.2, rf.Run.R)
	assert.Equal(t, int64(20), rf.Run.RandSeed)
	assert.Equal(t, pfa.TypePopulation, rf.Run.PaddyType)

	require.Len(t, rf.Space, 2)
	assert.Equal(t, param.Continuous, rf.Space[0].Kind)
	assert.Equal(t, param.Discrete, rf.Space[1].Kind)
	assert.Equal(t, 0.5, rf.Space[1].Step)
	require.NotNil(t, rf.Space[1].Limits)
	assert.Equal(t, -10.0, rf.Space[1].Limits.Lo)
	assert.Equal(t, param.Scaled, rf.Space[1].Mode)
}

func TestParseRunFileYAML_AcceptsJSON(t *testing.T) {
	// YAML is a superset of JSON, so API payloads parse through the same
	// path as run files.
	body := `{
		"objective": "paraboloid",
		"run": {"qmax": 3, "yt": 6, "r": 0.5, "iterations": 2, "randSeed": 1, "paddyType": "generational"},
		"space": [{"name": "x", "kind": "continuous", "min": 0, "max": 1, "mode": "fixed"}]
	}`
	rf, err := ParseRunFileYAML([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, pfa.TypeGenerational, rf.Run.PaddyType)
	require.Len(t, rf.Space, 1)
}

func TestParseRunFileYAML_Malformed(t *testing.T) {
	_, err := ParseRunFileYAML([]byte("run: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestParseRunFileYAML_InvalidRunConfig(t *testing.T) {
	body := `
objective: paraboloid
run:
  qmax: 0
  yt: 10
  r: 0.2
  iterations: 5
  paddyType: population
`
	_, err := ParseRunFileYAML([]byte(body))
	require.Error(t, err)
	assert.ErrorIs(t, err, pfa.ErrConfig)
}

func TestParseRunFileYAML_InvalidSpec(t *testing.T) {
	body := `
objective: paraboloid
run:
  qmax: 5
  yt: 10
  r: 0.2
  iterations: 5
  paddyType: population
space:
  - name: x
    kind: continuous
    min: 5
    max: -5
    mode: fixed
`
	_, err := ParseRunFileYAML([]byte(body))
	require.Error(t, err)
	assert.ErrorIs(t, err, param.ErrConfig)
}

func TestLoadRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validRunFile), 0644))

	rf, err := LoadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "paraboloid", rf.Objective)
}

func TestLoadRunFile_Missing(t *testing.T) {
	_, err := LoadRunFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestBuildSpace(t *testing.T) {
	rf, err := ParseRunFileYAML([]byte(validRunFile))
	require.NoError(t, err)

	space, err := rf.BuildSpace()
	require.NoError(t, err)
	assert.Equal(t, 2, space.Dim())
	assert.Equal(t, []string{"x", "y"}, space.Names())
}

func TestBuildSpace_Empty(t *testing.T) {
	rf := &RunFile{}
	_, err := rf.BuildSpace()
	require.Error(t, err)
	assert.ErrorIs(t, err, param.ErrConfig)
}
