package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/croplab/paddyfield/internal/param"
)

// createTestSnapshot builds a structurally valid snapshot with test data.
func createTestSnapshot(runID string) *Snapshot {
	return &Snapshot{
		Schema:  SchemaVersion,
		RunID:   runID,
		SavedAt: time.Now(),
		Config: RunConfig{
			Qmax:       5,
			YT:         10,
			R:          0.2,
			Iterations: 5,
			RandSeed:   20,
			PaddyType:  "population",
			Objective:  "paraboloid",
		},
		Space: []param.Spec{
			{Name: "x", Kind: param.Continuous, Min: -5, Max: 5, Mode: param.Fixed},
			{Name: "y", Kind: param.Continuous, Min: -7, Max: 3, Mode: param.Fixed},
		},
		Generations: []GenerationRecord{
			{Index: 0, Seeds: []SeedRecord{
				{Values: []float64{1.5, -2.0}, Fitness: 0.3},
				{Values: []float64{4.0, 2.0}, Fitness: -3.2},
			}},
			{Index: 1, Seeds: []SeedRecord{
				{Values: []float64{0.5, -0.5}, Fitness: 0.8},
				{Values: []float64{1.0, -1.0}, Fitness: 0.35},
			}},
		},
		RNGState: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
	}
}

func TestSnapshotEncodeDecodeRoundTrip(t *testing.T) {
	original := createTestSnapshot("run-roundtrip")

	data, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}

	if decoded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, decoded.RunID)
	}
	if decoded.Config != original.Config {
		t.Errorf("Config mismatch: expected %+v, got %+v", original.Config, decoded.Config)
	}
	if len(decoded.Space) != len(original.Space) {
		t.Fatalf("Space length mismatch: expected %d, got %d", len(original.Space), len(decoded.Space))
	}
	if len(decoded.Generations) != len(original.Generations) {
		t.Fatalf("Generations length mismatch: expected %d, got %d", len(original.Generations), len(decoded.Generations))
	}
	if decoded.Generations[1].Seeds[0].Fitness != 0.8 {
		t.Errorf("Fitness mismatch: got %f", decoded.Generations[1].Seeds[0].Fitness)
	}
	if len(decoded.RNGState) != len(original.RNGState) {
		t.Errorf("RNGState length mismatch: expected %d, got %d", len(original.RNGState), len(decoded.RNGState))
	}
}

func TestDecodeSnapshot_UnknownSchema(t *testing.T) {
	snap := createTestSnapshot("run-future")
	data, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Pretend the blob was written by a future version.
	mutated := strings.Replace(string(data), `"schema": 1`, `"schema": 99`, 1)
	if mutated == string(data) {
		t.Fatal("Failed to mutate schema tag in test fixture")
	}

	_, err = DecodeSnapshot([]byte(mutated))
	if err == nil {
		t.Fatal("Expected error for unknown schema tag")
	}
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("Expected CorruptStateError, got %T: %v", err, err)
	}
}

func TestDecodeSnapshot_NotJSON(t *testing.T) {
	_, err := DecodeSnapshot([]byte("definitely not json"))
	if err == nil {
		t.Fatal("Expected error for garbage input")
	}
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("Expected CorruptStateError, got %T: %v", err, err)
	}
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"missing run id", func(s *Snapshot) { s.RunID = "" }},
		{"missing rng state", func(s *Snapshot) { s.RNGState = nil }},
		{"out of order generations", func(s *Snapshot) { s.Generations[0].Index = 5 }},
		{"empty generation", func(s *Snapshot) { s.Generations[1].Seeds = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := createTestSnapshot("run-validate")
			tt.mutate(snap)

			err := snap.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrCorruptState) {
				t.Errorf("Expected CorruptStateError, got %T: %v", err, err)
			}
		})
	}
}

func TestSnapshotValidate_OK(t *testing.T) {
	snap := createTestSnapshot("run-ok")
	if err := snap.Validate(); err != nil {
		t.Fatalf("Expected valid snapshot, got: %v", err)
	}
}

func TestSnapshotToInfo(t *testing.T) {
	snap := createTestSnapshot("run-info")
	info := snap.ToInfo()

	if info.RunID != "run-info" {
		t.Errorf("RunID mismatch: got %s", info.RunID)
	}
	if info.Generations != 2 {
		t.Errorf("Generations mismatch: expected 2, got %d", info.Generations)
	}
	if info.BestFitness != 0.8 {
		t.Errorf("BestFitness mismatch: expected 0.8, got %f", info.BestFitness)
	}
	if info.Objective != "paraboloid" {
		t.Errorf("Objective mismatch: got %s", info.Objective)
	}
	if info.PaddyType != "population" {
		t.Errorf("PaddyType mismatch: got %s", info.PaddyType)
	}
}

func TestSnapshotToInfo_AllNegativeFitness(t *testing.T) {
	snap := createTestSnapshot("run-negative")
	snap.Generations = []GenerationRecord{
		{Index: 0, Seeds: []SeedRecord{
			{Values: []float64{1, 1}, Fitness: -5.0},
			{Values: []float64{2, 2}, Fitness: -2.5},
		}},
	}

	info := snap.ToInfo()
	if info.BestFitness != -2.5 {
		t.Errorf("Expected best fitness -2.5, got %f", info.BestFitness)
	}
}
