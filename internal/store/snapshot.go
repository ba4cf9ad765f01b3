package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/croplab/paddyfield/internal/param"
)

// SchemaVersion tags every encoded snapshot. Decoding rejects any other tag
// with a CorruptStateError rather than attempting a best-effort parse.
const SchemaVersion = 1

// RunConfig is the serialized copy of the engine run configuration.
// Mirrored here rather than imported to avoid a cycle with the pfa package.
type RunConfig struct {
	Qmax        int           `json:"qmax"`
	YT          int           `json:"yt"`
	R           float64       `json:"r"`
	Iterations  int           `json:"iterations"`
	RandSeed    int64         `json:"randSeed"`
	PaddyType   string        `json:"paddyType"`
	Objective   string        `json:"objective,omitempty"`
	EvalTimeout time.Duration `json:"evalTimeout,omitempty"`
}

// SeedRecord is one flattened seed: values in parameter-space order plus
// the evaluated fitness.
type SeedRecord struct {
	Values  []float64 `json:"values"`
	Fitness float64   `json:"fitness"`
}

// GenerationRecord is one flattened generation, seeds in rank order.
type GenerationRecord struct {
	Index int          `json:"index"`
	Seeds []SeedRecord `json:"seeds"`
}

// Snapshot is the self-contained, versioned persistence blob of a run:
// configuration, parameter descriptors, full flattened history, and the
// raw RNG state bytes. Restoring a snapshot and extending it reproduces an
// uninterrupted run bit for bit.
type Snapshot struct {
	Schema      int                `json:"schema"`
	RunID       string             `json:"runId"`
	SavedAt     time.Time          `json:"savedAt"`
	Config      RunConfig          `json:"config"`
	Space       []param.Spec       `json:"space"`
	Generations []GenerationRecord `json:"generations"`
	RNGState    []byte             `json:"rngState"`
}

// SnapshotInfo is snapshot metadata without the history payload, used for
// listing stored runs cheaply.
type SnapshotInfo struct {
	RunID       string    `json:"runId"`
	SavedAt     time.Time `json:"savedAt"`
	Generations int       `json:"generations"`
	BestFitness float64   `json:"bestFitness"`
	Objective   string    `json:"objective,omitempty"`
	PaddyType   string    `json:"paddyType"`
}

// ToInfo reduces the snapshot to its listing metadata.
func (s *Snapshot) ToInfo() SnapshotInfo {
	best := 0.0
	first := true
	for _, g := range s.Generations {
		for _, seed := range g.Seeds {
			if first || seed.Fitness > best {
				best = seed.Fitness
				first = false
			}
		}
	}
	return SnapshotInfo{
		RunID:       s.RunID,
		SavedAt:     s.SavedAt,
		Generations: len(s.Generations),
		BestFitness: best,
		Objective:   s.Config.Objective,
		PaddyType:   s.Config.PaddyType,
	}
}

// Encode serializes the snapshot, stamping the current schema tag.
func (s *Snapshot) Encode() ([]byte, error) {
	s.Schema = SchemaVersion
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses and validates a snapshot blob. The schema tag is
// probed before the full decode so unknown or future versions fail with a
// CorruptStateError and no partially constructed snapshot escapes.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var probe struct {
		Schema int `json:"schema"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &CorruptStateError{Reason: "not a snapshot blob: " + err.Error()}
	}
	if probe.Schema != SchemaVersion {
		return nil, &CorruptStateError{Reason: fmt.Sprintf("unknown schema tag %d (expected %d)", probe.Schema, SchemaVersion)}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CorruptStateError{Reason: "malformed snapshot: " + err.Error()}
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks the snapshot for structural corruption: a present run ID
// and RNG state, sequential generation indexes, and non-empty generations.
// Consistency between the parameter space and the stored seeds is a
// configuration concern checked at recovery time, not here.
func (s *Snapshot) Validate() error {
	if s.RunID == "" {
		return &CorruptStateError{Reason: "missing run id"}
	}
	if len(s.RNGState) == 0 {
		return &CorruptStateError{Reason: "missing rng state"}
	}
	for i, g := range s.Generations {
		if g.Index != i {
			return &CorruptStateError{Reason: fmt.Sprintf("generation %d stored at position %d", g.Index, i)}
		}
		if len(g.Seeds) == 0 {
			return &CorruptStateError{Reason: fmt.Sprintf("generation %d has no seeds", g.Index)}
		}
	}
	return nil
}
