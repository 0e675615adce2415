package plugin

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	domainPlugin "github.com/felixgeelhaar/taskline/pkg/domain/plugin"
	"github.com/felixgeelhaar/taskline/pkg/storage"
)

// Writer adapts a LineWriter to the host's context-aware writer port.
// Plugin calls cannot be cancelled once sent; the context is only checked
// before each call.
type Writer struct {
	impl domainPlugin.LineWriter
}

// NewWriter wraps impl.
func NewWriter(impl domainPlugin.LineWriter) *Writer {
	return &Writer{impl: impl}
}

func (w *Writer) Create(ctx context.Context, line, path, heading string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	res, err := w.impl.Create(domainPlugin.CreateArgs{Line: line, Path: path, Heading: heading})
	return res.Line, res.OK, err
}

func (w *Writer) Edit(ctx context.Context, newLine, lookup, path string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	res, err := w.impl.Edit(domainPlugin.EditArgs{NewLine: newLine, Lookup: lookup, Path: path})
	return res.Line, res.OK, err
}

func (w *Writer) Delete(ctx context.Context, lookup, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	res, err := w.impl.Delete(domainPlugin.DeleteArgs{Lookup: lookup, Path: path})
	return res.OK, err
}

// ErrNotConfigured is returned by VaultWriter before Init succeeds.
var ErrNotConfigured = errors.New("writer is not configured")

// VaultWriter serves a Markdown vault as a LineWriter. Init expects the
// "root" key naming the vault directory.
type VaultWriter struct {
	Logger *slog.Logger

	mu    sync.RWMutex
	vault *storage.Vault
}

func (w *VaultWriter) Init(config map[string]string) error {
	root := config["root"]
	if root == "" {
		return errors.New("missing required config key: root")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vault = storage.NewOSVault(root, w.Logger)
	return nil
}

func (w *VaultWriter) Create(args domainPlugin.CreateArgs) (domainPlugin.WriteResult, error) {
	v, err := w.current()
	if err != nil {
		return domainPlugin.WriteResult{}, err
	}
	line, ok, err := v.Create(context.Background(), args.Line, args.Path, args.Heading)
	return domainPlugin.WriteResult{Line: line, OK: ok}, err
}

func (w *VaultWriter) Edit(args domainPlugin.EditArgs) (domainPlugin.WriteResult, error) {
	v, err := w.current()
	if err != nil {
		return domainPlugin.WriteResult{}, err
	}
	line, ok, err := v.Edit(context.Background(), args.NewLine, args.Lookup, args.Path)
	return domainPlugin.WriteResult{Line: line, OK: ok}, err
}

func (w *VaultWriter) Delete(args domainPlugin.DeleteArgs) (domainPlugin.WriteResult, error) {
	v, err := w.current()
	if err != nil {
		return domainPlugin.WriteResult{}, err
	}
	ok, err := v.Delete(context.Background(), args.Lookup, args.Path)
	return domainPlugin.WriteResult{OK: ok}, err
}

func (w *VaultWriter) current() (*storage.Vault, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.vault == nil {
		return nil, ErrNotConfigured
	}
	return w.vault, nil
}
