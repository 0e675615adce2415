package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/felixgeelhaar/taskline/pkg/domain/overlay"
)

const checkpointVersion = 1

// ConflictError is returned when the checkpoint on disk was written by
// someone else since it was loaded.
type ConflictError struct {
	Expected uint64
	Actual   uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("checkpoint conflict: expected generation %d, found %d", e.Expected, e.Actual)
}

type checkpointFile struct {
	Version    int             `json:"version"`
	Generation uint64          `json:"generation"`
	SavedAt    time.Time       `json:"saved_at"`
	Entries    []overlay.Entry `json:"entries"`
}

// Checkpoint persists the overlay between runs so pending local changes
// survive a restart.
type Checkpoint struct {
	path       string
	lock       *flock.Flock
	generation uint64
}

// NewCheckpoint creates a checkpoint stored in the workspace state
// directory.
func NewCheckpoint(ws *Workspace) (*Checkpoint, error) {
	p, err := ws.ResolvePath(CheckpointFile)
	if err != nil {
		return nil, err
	}
	return &Checkpoint{path: p, lock: flock.New(p + ".lock")}, nil
}

// Path returns the checkpoint file path.
func (c *Checkpoint) Path() string {
	return c.path
}

// Load reads the saved entries. A missing checkpoint yields no entries.
func (c *Checkpoint) Load() ([]overlay.Entry, error) {
	// #nosec G304 -- path is resolved via Workspace.ResolvePath
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var f checkpointFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if f.Version != checkpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", f.Version)
	}
	c.generation = f.Generation
	return f.Entries, nil
}

// Save writes entries atomically. Saving fails with *ConflictError when
// another process saved since this checkpoint was last loaded or saved.
func (c *Checkpoint) Save(entries []overlay.Entry) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock checkpoint: %w", err)
	}
	defer func() { _ = c.lock.Unlock() }()

	if disk, err := c.diskGeneration(); err == nil && disk != c.generation {
		return &ConflictError{Expected: c.generation, Actual: disk}
	}

	if entries == nil {
		entries = []overlay.Entry{}
	}
	f := checkpointFile{
		Version:    checkpointVersion,
		Generation: c.generation + 1,
		SavedAt:    time.Now().UTC(),
		Entries:    entries,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := atomic.WriteFile(c.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	c.generation = f.Generation
	return nil
}

func (c *Checkpoint) diskGeneration() (uint64, error) {
	// #nosec G304 -- path is resolved via Workspace.ResolvePath
	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, err
	}
	var f struct {
		Generation uint64 `json:"generation"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, err
	}
	return f.Generation, nil
}
