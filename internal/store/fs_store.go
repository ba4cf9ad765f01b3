package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore persists snapshots on the filesystem under
// <baseDir>/runs/<runID>/snapshot.json.
//
// Writes go through a temp file and an atomic rename, and the previous
// snapshot is kept as snapshot.json.bak so a run survives a crash mid-save:
// if the primary blob turns out corrupt, Load falls back to the backup.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a filesystem-backed store rooted at baseDir, creating
// the directory if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

func (fs *FSStore) runDir(runID string) string {
	return filepath.Join(fs.baseDir, "runs", runID)
}

func (fs *FSStore) snapshotPath(runID string) string {
	return filepath.Join(fs.runDir(runID), "snapshot.json")
}

// SaveSnapshot atomically writes the snapshot, rotating the previous one to
// the backup path first.
func (fs *FSStore) SaveSnapshot(runID string, snap *Snapshot) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	runDir := fs.runDir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := snap.Encode()
	if err != nil {
		return err
	}

	finalPath := fs.snapshotPath(runID)

	// Rotate the prior snapshot to the backup slot before replacing it.
	if _, err := os.Stat(finalPath); err == nil {
		if err := os.Rename(finalPath, finalPath+".bak"); err != nil {
			return fmt.Errorf("failed to rotate backup snapshot: %w", err)
		}
	}

	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	slog.Debug("snapshot saved", "run_id", runID, "path", finalPath)
	return nil
}

// LoadSnapshot reads and decodes the snapshot for a run, falling back to
// the backup copy when the primary blob is corrupt.
func (fs *FSStore) LoadSnapshot(runID string) (*Snapshot, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	path := fs.snapshotPath(runID)
	snap, err := decodeFile(path)
	if err == nil {
		return snap, nil
	}
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	}
	if !errors.Is(err, ErrCorruptState) {
		return nil, err
	}

	slog.Warn("primary snapshot corrupt, trying backup", "run_id", runID, "error", err)
	backup, backupErr := decodeFile(path + ".bak")
	if backupErr != nil {
		// Both copies unusable; report the primary failure.
		return nil, err
	}
	return backup, nil
}

func decodeFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeSnapshot(data)
}

// ListSnapshots returns metadata for every stored run.
func (fs *FSStore) ListSnapshots() ([]SnapshotInfo, error) {
	runsDir := filepath.Join(fs.baseDir, "runs")

	entries, err := os.ReadDir(runsDir)
	if os.IsNotExist(err) {
		return []SnapshotInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var infos []SnapshotInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		runID := entry.Name()
		snap, err := fs.LoadSnapshot(runID)
		if err != nil {
			slog.Warn("failed to load snapshot for listing", "run_id", runID, "error", err)
			continue
		}
		infos = append(infos, snap.ToInfo())
	}

	slog.Debug("listed snapshots", "count", len(infos))
	return infos, nil
}

// DeleteSnapshot removes the run directory including snapshot, backup, and
// trace artifacts.
func (fs *FSStore) DeleteSnapshot(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}

	runDir := fs.runDir(runID)
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		return &NotFoundError{RunID: runID}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(runDir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("snapshot deleted", "run_id", runID, "path", runDir)
	return nil
}
