package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"taskdeck/backend"
)

// Store persists snapshots. Load never fails: a missing or unreadable
// document yields an empty snapshot. Save is best-effort: a write
// failure is logged and swallowed, and the in-memory snapshot stays
// authoritative for the rest of the process.
type Store interface {
	Load() *Snapshot
	Save(snap *Snapshot)
}

// FileStore keeps the snapshot as a single pretty-printed JSON
// document on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot document from disk.
func (f *FileStore) Load() *Snapshot {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return NewSnapshot()
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Str("path", f.path).Err(err).Msg("snapshot unreadable, starting empty")
		return NewSnapshot()
	}
	if snap.Tasks == nil {
		snap.Tasks = make(map[backend.ID][]backend.Task)
	}
	return &snap
}

// Save writes the snapshot document to disk.
func (f *FileStore) Save(snap *Snapshot) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("snapshot encode failed")
		return
	}
	if dir := filepath.Dir(f.path); dir != "." {
		_ = os.MkdirAll(dir, 0o700)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		log.Warn().Str("path", f.path).Err(err).Msg("snapshot write failed")
	}
}

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	snap  *Snapshot
	saves int
}

// Load returns the stored snapshot, or an empty one.
func (m *MemStore) Load() *Snapshot {
	if m.snap == nil {
		return NewSnapshot()
	}
	return m.snap
}

// Save retains the snapshot in memory.
func (m *MemStore) Save(snap *Snapshot) {
	m.snap = snap
	m.saves++
}

// Saves reports how many times Save has been called.
func (m *MemStore) Saves() int { return m.saves }
