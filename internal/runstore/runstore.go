// Package runstore persists run artifacts to disk. Every write is
// marshal-then-atomic-rename so a crash mid-write never leaves a
// half-written file for the next phase to read.
package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes artifacts under a single run directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("runstore: failed to create run directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the run directory's path.
func (s *Store) Dir() string {
	return s.dir
}

// WriteJSON marshals v and atomically writes it to name under the run
// directory.
func (s *Store) WriteJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("runstore: failed to marshal %s: %w", name, err)
	}
	return s.WriteText(name, string(data))
}

// WriteText atomically writes contents to name under the run directory: it
// writes to a temp file in the same directory, then renames it into place,
// so readers never observe a partial file.
func (s *Store) WriteText(name, contents string) error {
	target := filepath.Join(s.dir, name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("runstore: failed to create directory for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("runstore: failed to create temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(contents); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("runstore: failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("runstore: failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("runstore: failed to rename into place for %s: %w", name, err)
	}
	return nil
}

// AttemptFile formats a per-attempt filename with the standard
// attempt_<k>.<suffix> naming.
func AttemptFile(attemptIndex int, suffix string) string {
	return fmt.Sprintf("attempt_%d.%s", attemptIndex, suffix)
}
