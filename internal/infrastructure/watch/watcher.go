package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change is the kind of change seen on a document.
type Change string

const (
	Created Change = "create"
	Written Change = "write"
	Removed Change = "remove"
	Renamed Change = "rename"
)

// ChangeEvent is one change to a document.
type ChangeEvent struct {
	Path string
	Kind Change
}

const defaultQuietPeriod = 500 * time.Millisecond

// FSWatcher reports document changes below a vault root. Hidden
// directories, the taskline state directory among them, are never watched.
type FSWatcher struct {
	watcher  *fsnotify.Watcher
	quiet    time.Duration
	filter   *PatternFilter
	onChange func([]ChangeEvent)
}

// NewFSWatcher creates a watcher. onChange receives the changes of each
// quiet period as one batch. A nil filter passes every visible file.
func NewFSWatcher(quiet time.Duration, filter *PatternFilter, onChange func([]ChangeEvent)) (*FSWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if quiet <= 0 {
		quiet = defaultQuietPeriod
	}
	if filter == nil {
		filter = NewPatternFilter("", nil, nil)
	}
	return &FSWatcher{watcher: w, quiet: quiet, filter: filter, onChange: onChange}, nil
}

// WatchRecursive watches dir and every visible directory below it.
func (w *FSWatcher) WatchRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil || !d.IsDir():
			return nil
		case p != dir && hidden(d.Name()):
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// Run delivers batches until ctx is cancelled or fsnotify reports an error.
func (w *FSWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	batcher := NewDebouncer(w.quiet, func(batch []ChangeEvent) {
		if w.onChange != nil {
			w.onChange(batch)
		}
	})
	defer batcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if change, ok := w.classify(event); ok {
				batcher.Trigger(change)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// classify turns a raw event into a document change. New directories are
// added to the watch set and produce no change of their own.
func (w *FSWatcher) classify(event fsnotify.Event) (ChangeEvent, bool) {
	kind := changeOf(event.Op)
	if kind == "" {
		return ChangeEvent{}, false
	}
	if kind == Created {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !hidden(info.Name()) {
				_ = w.WatchRecursive(event.Name)
			}
			return ChangeEvent{}, false
		}
	}
	if !w.filter.Matches(event.Name) {
		return ChangeEvent{}, false
	}
	return ChangeEvent{Path: event.Name, Kind: kind}, true
}

func changeOf(op fsnotify.Op) Change {
	switch {
	case op.Has(fsnotify.Create):
		return Created
	case op.Has(fsnotify.Write):
		return Written
	case op.Has(fsnotify.Remove):
		return Removed
	case op.Has(fsnotify.Rename):
		return Renamed
	}
	return ""
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
