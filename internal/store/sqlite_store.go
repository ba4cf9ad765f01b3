package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots in a single sqlite database, one payload
// row per run keyed by run ID with the schema version alongside. Useful
// when many runs share one archive file that moves between machines.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a sqlite-backed store at the given database path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the runs table. It is idempotent.
func (s *SQLiteStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// SaveSnapshot upserts the encoded snapshot payload for the run.
func (s *SQLiteStore) SaveSnapshot(runID string, snap *Snapshot) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := snap.Encode()
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, schema_version, saved_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			saved_at = excluded.saved_at,
			payload = excluded.payload
	`, runID, SchemaVersion, snap.SavedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"), payload)
	return err
}

// LoadSnapshot fetches and decodes the payload for the run.
func (s *SQLiteStore) LoadSnapshot(runID string) (*Snapshot, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRow(`SELECT payload FROM runs WHERE id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{RunID: runID}
		}
		return nil, err
	}
	return DecodeSnapshot(payload)
}

// ListSnapshots returns metadata for every stored run.
func (s *SQLiteStore) ListSnapshots() ([]SnapshotInfo, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT payload FROM runs ORDER BY saved_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		snap, err := DecodeSnapshot(payload)
		if err != nil {
			// A single corrupt row should not hide the rest.
			continue
		}
		infos = append(infos, snap.ToInfo())
	}
	return infos, rows.Err()
}

// DeleteSnapshot removes the run's row.
func (s *SQLiteStore) DeleteSnapshot(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	res, err := db.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &NotFoundError{RunID: runID}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}
