package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists jobs as a single JSON document. Writes go through a temp
// file and rename so a crash mid-save cannot corrupt the previous state.
type Store struct {
	path string
}

// NewStore creates a store rooted at path (e.g. data/jobs.json).
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads all persisted jobs. A missing file is an empty store, not an
// error.
func (s *Store) Load() ([]*Job, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read job store: %w", err)
	}

	var jobs []*Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse job store: %w", err)
	}
	return jobs, nil
}

// Save persists the full job set.
func (s *Store) Save(jobs []*Job) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode jobs: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".jobs-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write job store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close job store: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace job store: %w", err)
	}
	return nil
}

// Find returns the job with the given id or name.
func Find(jobs []*Job, idOrName string) (*Job, error) {
	for _, j := range jobs {
		if j.ID == idOrName || j.Name == idOrName {
			return j, nil
		}
	}
	return nil, fmt.Errorf("no job %q", idOrName)
}
