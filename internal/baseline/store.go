package baseline

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Record is the single persisted calibration artifact.
type Record struct {
	BaselineOhms float64   `json:"baseline_ohms"`
	SavedAt      time.Time `json:"saved_at"`
}

// Store persists one Record in a JSON file, overwriting any prior record.
// Load never fails upward: anything missing, unreadable, malformed, or
// stale simply reads back as absent and the calibrator starts cold.
type Store struct {
	path   string
	maxAge time.Duration
}

// NewStore returns a store backed by path. Records older than maxAge are
// treated as absent on load; maxAge <= 0 disables the staleness check.
func NewStore(path string, maxAge time.Duration) *Store {
	return &Store{path: path, maxAge: maxAge}
}

// Load reads the persisted record. The second return value reports whether
// a usable record was found.
func (s *Store) Load() (Record, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("baseline: read %s: %v", s.path, err)
		}
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("baseline: malformed record in %s: %v", s.path, err)
		return Record{}, false
	}
	if rec.BaselineOhms <= 0 || rec.SavedAt.IsZero() {
		log.Printf("baseline: incomplete record in %s, ignoring", s.path)
		return Record{}, false
	}

	if s.maxAge > 0 {
		age := time.Since(rec.SavedAt)
		if age >= s.maxAge {
			log.Printf("baseline: record is %.1fh old (max %.1fh), will recalibrate",
				age.Hours(), s.maxAge.Hours())
			return Record{}, false
		}
	}
	return rec, true
}

// Save atomically replaces the persisted record. The write goes to a temp
// file in the same directory first so a crash mid-write never leaves a
// partial record behind.
func (s *Store) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline record: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp baseline file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp baseline file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp baseline file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace baseline file: %w", err)
	}
	return nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}
