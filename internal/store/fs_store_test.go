package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir() // Automatically cleaned up after test
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

func TestNewFSStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	if store == nil {
		t.Fatal("Expected non-nil store")
	}

	// Verify base directory was created
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveSnapshot(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-123"
	snap := createTestSnapshot(runID)

	if err := store.SaveSnapshot(runID, snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	// Verify snapshot file exists
	expectedPath := filepath.Join(tempDir, "runs", runID, "snapshot.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Snapshot file was not created at %s", expectedPath)
	}

	// Verify no temp file remains
	tempPath := expectedPath + ".tmp"
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Errorf("Temp file should not exist after save: %s", tempPath)
	}
}

func TestSaveSnapshot_EmptyRunID(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveSnapshot("", createTestSnapshot("any-id")); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestSaveSnapshot_NilSnapshot(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveSnapshot("test-run", nil); err == nil {
		t.Fatal("Expected error for nil snapshot")
	}
}

func TestSaveSnapshot_OverwriteRotatesBackup(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-overwrite"
	first := createTestSnapshot(runID)
	first.Generations = first.Generations[:1]

	second := createTestSnapshot(runID)

	if err := store.SaveSnapshot(runID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveSnapshot(runID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	// Load returns the newest snapshot
	loaded, err := store.LoadSnapshot(runID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Generations) != 2 {
		t.Errorf("Expected 2 generations, got %d", len(loaded.Generations))
	}

	// The previous snapshot was rotated to the backup slot
	backupPath := filepath.Join(tempDir, "runs", runID, "snapshot.json.bak")
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		t.Error("Expected backup snapshot after overwrite")
	}
}

func TestLoadSnapshot(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "test-run-load"
	original := createTestSnapshot(runID)

	if err := store.SaveSnapshot(runID, original); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := store.LoadSnapshot(runID)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.RunID != original.RunID {
		t.Errorf("RunID mismatch: expected %s, got %s", original.RunID, loaded.RunID)
	}
	if loaded.Config != original.Config {
		t.Errorf("Config mismatch: expected %+v, got %+v", original.Config, loaded.Config)
	}
	if len(loaded.Generations) != len(original.Generations) {
		t.Errorf("Generations mismatch: expected %d, got %d", len(original.Generations), len(loaded.Generations))
	}
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadSnapshot("nonexistent-run")
	if err == nil {
		t.Fatal("Expected error for nonexistent snapshot")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}
}

func TestLoadSnapshot_EmptyRunID(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.LoadSnapshot(""); err == nil {
		t.Fatal("Expected error for empty runID")
	}
}

func TestLoadSnapshot_CorruptPrimaryFallsBackToBackup(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-corrupt"
	first := createTestSnapshot(runID)
	first.Generations = first.Generations[:1]
	second := createTestSnapshot(runID)

	if err := store.SaveSnapshot(runID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveSnapshot(runID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	// Clobber the primary blob; the backup still holds the first snapshot.
	primaryPath := filepath.Join(tempDir, "runs", runID, "snapshot.json")
	if err := os.WriteFile(primaryPath, []byte("{truncated"), 0644); err != nil {
		t.Fatalf("Failed to corrupt primary: %v", err)
	}

	loaded, err := store.LoadSnapshot(runID)
	if err != nil {
		t.Fatalf("Expected backup fallback, got error: %v", err)
	}
	if len(loaded.Generations) != 1 {
		t.Errorf("Expected the backup snapshot (1 generation), got %d", len(loaded.Generations))
	}
}

func TestLoadSnapshot_BothCopiesCorrupt(t *testing.T) {
	store, tempDir := setupTestStore(t)

	runID := "test-run-hopeless"
	if err := store.SaveSnapshot(runID, createTestSnapshot(runID)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	runDir := filepath.Join(tempDir, "runs", runID)
	if err := os.WriteFile(filepath.Join(runDir, "snapshot.json"), []byte("junk"), 0644); err != nil {
		t.Fatalf("Failed to corrupt primary: %v", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "snapshot.json.bak"), []byte("junk"), 0644); err != nil {
		t.Fatalf("Failed to corrupt backup: %v", err)
	}

	_, err := store.LoadSnapshot(runID)
	if err == nil {
		t.Fatal("Expected error when both copies are corrupt")
	}
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("Expected CorruptStateError, got %T: %v", err, err)
	}
}

func TestListSnapshots_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	infos, err := store.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty list, got %d snapshots", len(infos))
	}
}

func TestListSnapshots_Multiple(t *testing.T) {
	store, _ := setupTestStore(t)

	runs := []string{"run-1", "run-2", "run-3"}
	for _, runID := range runs {
		if err := store.SaveSnapshot(runID, createTestSnapshot(runID)); err != nil {
			t.Fatalf("Failed to save snapshot %s: %v", runID, err)
		}
	}

	infos, err := store.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(infos) != len(runs) {
		t.Errorf("Expected %d snapshots, got %d", len(runs), len(infos))
	}

	found := make(map[string]bool)
	for _, info := range infos {
		found[info.RunID] = true
	}
	for _, runID := range runs {
		if !found[runID] {
			t.Errorf("Run %s not found in list", runID)
		}
	}
}

func TestListSnapshots_SkipsInvalidDirectories(t *testing.T) {
	store, tempDir := setupTestStore(t)

	validRunID := "valid-run"
	if err := store.SaveSnapshot(validRunID, createTestSnapshot(validRunID)); err != nil {
		t.Fatalf("Failed to save valid snapshot: %v", err)
	}

	// Directory without a snapshot blob
	if err := os.MkdirAll(filepath.Join(tempDir, "runs", "empty-run"), 0755); err != nil {
		t.Fatalf("Failed to create empty run directory: %v", err)
	}

	// Stray file in the runs directory
	if err := os.WriteFile(filepath.Join(tempDir, "runs", "dummy.txt"), []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create dummy file: %v", err)
	}

	infos, err := store.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("Expected 1 snapshot, got %d", len(infos))
	}
	if len(infos) > 0 && infos[0].RunID != validRunID {
		t.Errorf("Expected runID %s, got %s", validRunID, infos[0].RunID)
	}
}

func TestDeleteSnapshot(t *testing.T) {
	store, _ := setupTestStore(t)

	runID := "test-run-delete"
	if err := store.SaveSnapshot(runID, createTestSnapshot(runID)); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if err := store.DeleteSnapshot(runID); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}

	_, err := store.LoadSnapshot(runID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError after delete, got %T: %v", err, err)
	}
}

func TestDeleteSnapshot_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	err := store.DeleteSnapshot("nonexistent-run")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got %T: %v", err, err)
	}
}

func TestConcurrentSave(t *testing.T) {
	store, _ := setupTestStore(t)

	const numRuns = 10
	done := make(chan bool, numRuns)

	for i := 0; i < numRuns; i++ {
		go func(idx int) {
			runID := fmt.Sprintf("concurrent-run-%d", idx)
			if err := store.SaveSnapshot(runID, createTestSnapshot(runID)); err != nil {
				t.Errorf("Concurrent save failed for run %s: %v", runID, err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < numRuns; i++ {
		<-done
	}

	infos, err := store.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(infos) != numRuns {
		t.Errorf("Expected %d snapshots, got %d", numRuns, len(infos))
	}
}
