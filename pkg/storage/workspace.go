// Package storage implements the document-side adapters: the Markdown
// vault (index and writer), the overlay checkpoint and the JSONL logs kept
// under the vault's state directory.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	StateDir       = ".taskline"
	ConfigFile     = "config.yaml"
	CheckpointFile = "overlay.json"
	DeadLetterFile = "deadletters.jsonl"
	JournalFile    = "events.jsonl"
	LockFile       = "vault.lock"
)

// Workspace locates the state directory of a vault.
type Workspace struct {
	root string
}

// NewWorkspace creates a Workspace rooted at the vault directory.
func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

// Root returns the vault directory.
func (w *Workspace) Root() string {
	return w.root
}

// ResolvePath returns the path of filename inside the state directory and
// rejects anything that would escape it.
func (w *Workspace) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Join(w.root, StateDir)
	cleanPath := filepath.Clean(filepath.Join(baseDir, filename))

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}
	return cleanPath, nil
}

// Initialize creates the state directory.
func (w *Workspace) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(filepath.Join(w.root, StateDir), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", StateDir, err)
	}
	return nil
}

// IsInitialized reports whether the state directory exists.
func (w *Workspace) IsInitialized() bool {
	_, err := os.Stat(filepath.Join(w.root, StateDir))
	return err == nil
}
