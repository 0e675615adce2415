package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
)

// Vault is a directory of Markdown documents. It serves the index of all
// checklist items and applies line-level writes.
type Vault struct {
	fs          afero.Fs
	root        string
	logger      *slog.Logger
	retryConfig retry.Config

	mu   sync.Mutex
	lock *flock.Flock
}

// VaultOption configures a Vault.
type VaultOption func(*Vault)

// WithFileLock guards writes with an OS-level lock file so other taskline
// processes do not interleave with this one.
func WithFileLock(lockPath string) VaultOption {
	return func(v *Vault) { v.lock = flock.New(lockPath) }
}

// WithVaultLogger sets the logger. A nil logger means slog.Default().
func WithVaultLogger(logger *slog.Logger) VaultOption {
	return func(v *Vault) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVault creates a Vault over the directory root of fsys.
func NewVault(fsys afero.Fs, root string, opts ...VaultOption) *Vault {
	v := &Vault{
		fs:     fsys,
		root:   root,
		logger: slog.Default(),
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewOSVault creates a Vault on the real filesystem, with writes guarded
// by the lock file in the state directory.
func NewOSVault(root string, logger *slog.Logger) *Vault {
	return NewVault(afero.NewOsFs(), root,
		WithFileLock(filepath.Join(root, StateDir, LockFile)),
		WithVaultLogger(logger))
}

// Root returns the vault directory.
func (v *Vault) Root() string {
	return v.root
}

// ResolveDocument maps a vault-relative document path to a filesystem
// path, rejecting paths that leave the vault or are not Markdown files.
func (v *Vault) ResolveDocument(rel string) (string, error) {
	rel = strings.TrimSpace(filepath.ToSlash(rel))
	if rel == "" {
		return "", fmt.Errorf("document path cannot be empty")
	}
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || strings.HasPrefix(clean, "../") || clean != strings.TrimPrefix(rel, "./") {
		return "", fmt.Errorf("invalid document path: %s", rel)
	}
	if !strings.EqualFold(path.Ext(clean), ".md") {
		return "", fmt.Errorf("not a markdown document: %s", rel)
	}
	if strings.HasPrefix(clean, StateDir+"/") {
		return "", fmt.Errorf("invalid document path: %s", rel)
	}
	return filepath.Join(v.root, filepath.FromSlash(clean)), nil
}

// Documents lists the vault-relative paths of all Markdown documents,
// skipping hidden directories.
func (v *Vault) Documents() ([]string, error) {
	var docs []string
	err := afero.Walk(v.fs, v.root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if p != v.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(name), ".md") {
			return nil
		}
		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return err
		}
		docs = append(docs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}
	sort.Strings(docs)
	return docs, nil
}

// Snapshot returns the checklist items of every document.
func (v *Vault) Snapshot(ctx context.Context) ([]codec.IndexEntry, error) {
	docs, err := v.Documents()
	if err != nil {
		return nil, err
	}

	var out []codec.IndexEntry
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := v.read(ctx, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, parseDocument(doc, content)...)
	}
	v.logger.Debug("vault indexed", "documents", len(docs), "records", len(out))
	return out, nil
}

// Create inserts line at the end of the section under heading, adding the
// heading when the document lacks it and the document when it is missing.
// An empty heading appends to the end of the document.
func (v *Vault) Create(ctx context.Context, line, doc, heading string) (string, bool, error) {
	var written string
	err := v.modify(ctx, doc, true, func(lines []string) ([]string, bool) {
		block := splitLines(line)
		if len(block) == 0 {
			return nil, false
		}
		written = line

		if strings.TrimSpace(heading) == "" {
			return append(lines, block...), true
		}
		h := findHeading(lines, heading)
		if h < 0 {
			if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) != "" {
				lines = append(lines, "")
			}
			lines = append(lines, heading)
			return append(lines, block...), true
		}
		at := sectionEnd(lines, h)
		return insertAt(lines, at, block), true
	})
	if errors.Is(err, errNoChange) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return written, true, nil
}

// Edit replaces the block matching lookup with newLine. It reports false
// when lookup is not found.
func (v *Vault) Edit(ctx context.Context, newLine, lookup, doc string) (string, bool, error) {
	err := v.modify(ctx, doc, false, func(lines []string) ([]string, bool) {
		want := splitLines(lookup)
		i := findBlock(lines, want)
		if i < 0 {
			return nil, false
		}
		repl := reindent(splitLines(newLine), leadingWhitespace(lines[i]))
		out := append([]string{}, lines[:i]...)
		out = append(out, repl...)
		return append(out, lines[i+len(want):]...), true
	})
	if errors.Is(err, errNoChange) || errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return newLine, true, nil
}

// Delete removes the block matching lookup. It reports false when lookup
// is not found.
func (v *Vault) Delete(ctx context.Context, lookup, doc string) (bool, error) {
	err := v.modify(ctx, doc, false, func(lines []string) ([]string, bool) {
		want := splitLines(lookup)
		i := findBlock(lines, want)
		if i < 0 {
			return nil, false
		}
		out := append([]string{}, lines[:i]...)
		return append(out, lines[i+len(want):]...), true
	})
	if errors.Is(err, errNoChange) || errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var errNoChange = errors.New("no change")

// modify reads doc, applies fn and writes the result back under the vault
// locks. fn returns false to leave the document untouched.
func (v *Vault) modify(ctx context.Context, doc string, create bool, fn func([]string) ([]string, bool)) error {
	p, err := v.ResolveDocument(doc)
	if err != nil {
		return err
	}

	unlock, err := v.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := afero.ReadFile(v.fs, p)
	switch {
	case errors.Is(err, fs.ErrNotExist) && create:
		data = nil
	case err != nil:
		return fmt.Errorf("read %s: %w", doc, err)
	}

	lines, changed := fn(splitLines(string(data)))
	if !changed {
		return errNoChange
	}

	if err := v.fs.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return fmt.Errorf("create directory for %s: %w", doc, err)
	}
	if err := v.writeFile(p, []byte(joinLines(lines))); err != nil {
		return fmt.Errorf("write %s: %w", doc, err)
	}
	v.logger.Debug("document written", "path", doc, "lines", len(lines))
	return nil
}

// writeFile replaces p through a temporary sibling and a rename, so readers
// see either the old or the new document.
func (v *Vault) writeFile(p string, data []byte) error {
	tmp := p + ".taskline.tmp"
	if err := afero.WriteFile(v.fs, tmp, data, 0600); err != nil {
		return err
	}
	if err := v.fs.Rename(tmp, p); err != nil {
		_ = v.fs.Remove(tmp)
		return err
	}
	return nil
}

func (v *Vault) read(ctx context.Context, doc string) (string, error) {
	retryer := retry.New[[]byte](v.retryConfig)
	data, err := retryer.Do(ctx, func(ctx context.Context) ([]byte, error) {
		p, err := v.ResolveDocument(doc)
		if err != nil {
			return nil, err
		}
		return afero.ReadFile(v.fs, p)
	})
	if err != nil {
		return "", fmt.Errorf("read %s: %w", doc, err)
	}
	return string(data), nil
}

func (v *Vault) acquire(ctx context.Context) (func(), error) {
	v.mu.Lock()
	if v.lock == nil {
		return v.mu.Unlock, nil
	}

	if err := v.fs.MkdirAll(filepath.Dir(v.lock.Path()), 0700); err != nil {
		v.mu.Unlock()
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	locked, err := v.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		v.mu.Unlock()
		if err == nil {
			err = errors.New("vault is locked by another process")
		}
		return nil, fmt.Errorf("acquire vault lock: %w", err)
	}
	return func() {
		_ = v.lock.Unlock()
		v.mu.Unlock()
	}, nil
}

func insertAt(lines []string, at int, block []string) []string {
	out := make([]string, 0, len(lines)+len(block))
	out = append(out, lines[:at]...)
	out = append(out, block...)
	return append(out, lines[at:]...)
}
