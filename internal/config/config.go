// Package config loads run files: YAML documents describing the objective,
// the run configuration, and the parameter space of an optimization.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/croplab/paddyfield/internal/param"
	"github.com/croplab/paddyfield/internal/pfa"
)

// RunFile is the on-disk description of a run.
type RunFile struct {
	// Objective names a built-in benchmark objective. Optional when the
	// caller binds its own evaluation function.
	Objective string `yaml:"objective" json:"objective"`

	// Run is the engine configuration (qmax, yt, r, iterations, seed,
	// paddy type).
	Run pfa.Config `yaml:"run" json:"run"`

	// Space lists the parameter specs in evaluation order. May be empty
	// when the objective carries conventional bounds.
	Space []param.Spec `yaml:"space" json:"space"`
}

// ParseRunFileYAML parses a run file from YAML bytes and validates it.
// Used both for files and for API payloads.
func ParseRunFileYAML(data []byte) (*RunFile, error) {
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file yaml: %w", err)
	}
	if err := rf.Validate(); err != nil {
		return nil, err
	}
	return &rf, nil
}

// LoadRunFile reads and parses a run file from disk.
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	rf, err := ParseRunFileYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rf, nil
}

// Validate checks the embedded run configuration and every parameter spec.
func (rf *RunFile) Validate() error {
	if err := rf.Run.Validate(); err != nil {
		return err
	}
	for i := range rf.Space {
		if err := rf.Space[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BuildSpace assembles the parameter space declared in the run file.
func (rf *RunFile) BuildSpace() (*param.Space, error) {
	if len(rf.Space) == 0 {
		return nil, &param.ConfigError{Field: "space", Reason: "run file declares no parameters"}
	}
	specs := make([]*param.Spec, len(rf.Space))
	for i := range rf.Space {
		specs[i] = &rf.Space[i]
	}
	return param.NewSpace(specs...)
}
