package store

// Store is the interface snapshot backends implement. Implementations must
// be safe for concurrent use.
//
// Error conventions:
//   - nil on success
//   - NotFoundError when a snapshot does not exist (Load/Delete)
//   - CorruptStateError when a stored blob cannot be decoded
//   - other errors wrapped with context via fmt.Errorf("...: %w", err)
type Store interface {
	// SaveSnapshot persists a snapshot under its run ID, overwriting any
	// previous snapshot for the same run. Implementations must write
	// atomically so an interrupted save never corrupts the stored state.
	SaveSnapshot(runID string, snap *Snapshot) error

	// LoadSnapshot retrieves and validates the snapshot for a run.
	LoadSnapshot(runID string) (*Snapshot, error)

	// ListSnapshots returns metadata for all stored snapshots.
	ListSnapshots() ([]SnapshotInfo, error)

	// DeleteSnapshot removes a run's snapshot and associated artifacts.
	DeleteSnapshot(runID string) error
}
