// Package application coordinates the overlay with the storage adapters:
// it dispatches pending writes, merges index snapshots and exposes the
// task operations the CLI calls.
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/events"
	"github.com/felixgeelhaar/taskline/pkg/domain/overlay"
)

// Writer applies line-level changes to the document store. A false ok
// reports an ordinary failure (e.g. lookup text not found); err is kept
// for unexpected conditions.
type Writer interface {
	Create(ctx context.Context, line, path, heading string) (written string, ok bool, err error)
	Edit(ctx context.Context, newLine, lookup, path string) (written string, ok bool, err error)
	Delete(ctx context.Context, lookup, path string) (ok bool, err error)
}

// IndexProvider returns the full list of records storage currently holds.
type IndexProvider interface {
	Snapshot(ctx context.Context) ([]codec.IndexEntry, error)
}

// Publisher receives sync events. *events.Dispatcher implements it.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// DeadLetterSink stores writes that exhausted their retries.
type DeadLetterSink interface {
	Append(dl events.DeadLetter) error
}

// Settings are read-only values owned by the host.
type Settings struct {
	DefaultPath    string
	DefaultHeading string
}

var (
	// ErrMissingPreviousVersion marks an edit that cannot be located in
	// storage. It is not retried.
	ErrMissingPreviousVersion = errors.New("edit has no previous version")
	// ErrRejected is returned when the writer reports ok=false.
	ErrRejected = errors.New("write rejected by storage")
	// ErrTaskNotFound is returned for ids the overlay does not hold.
	ErrTaskNotFound = errors.New("task not found")
	// ErrDuplicateID is returned when adding a record whose id is taken.
	ErrDuplicateID = errors.New("task id already exists")
)

// SyncError describes one failed dispatch.
type SyncError struct {
	TaskID  string
	Action  overlay.Action
	Attempt int
	Err     error
}

func (e *SyncError) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("sync %s of task %s failed (attempt %d): %v", e.Action, e.TaskID, e.Attempt, e.Err)
	}
	return fmt.Sprintf("sync %s of task %s failed: %v", e.Action, e.TaskID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.Event) error { return nil }
