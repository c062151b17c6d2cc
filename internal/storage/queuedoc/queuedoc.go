// Package queuedoc persists the download queue as a single JSON document,
// mirroring the layout the player reads back at startup.
package queuedoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xtreamkit/xtream_player/internal/download"
)

const (
	dirPerm  = 0755
	filePerm = 0644
)

// Store reads and writes the queue document at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted queue in order. A missing document yields an
// empty queue; a corrupt one is an error so the caller can decide to start
// empty. Control flags are always cleared on load.
func (s *Store) Load() ([]*download.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read queue document: %w", err)
	}

	var records []*download.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode queue document: %w", err)
	}

	for _, rec := range records {
		rec.PauseRequested = false
		rec.CancelRequested = false
	}

	return records, nil
}

// Save writes the queue document, clearing transient control flags.
func (s *Store) Save(records []download.Record) error {
	for i := range records {
		records[i].PauseRequested = false
		records[i].CancelRequested = false
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queue document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write queue document: %w", err)
	}

	return nil
}
