package overlay

import (
	"time"

	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// Op is an operation accepted by Reduce. The set is closed.
type Op interface {
	opName() string
}

// LocalAdd appends new records that still have to be written to storage.
type LocalAdd struct{ Tasks []task.Task }

// LocalUpdate replaces existing records with locally edited versions.
type LocalUpdate struct{ Tasks []task.Task }

// LocalDelete marks existing records for deletion from storage.
type LocalDelete struct{ Tasks []task.Task }

// RemoteUpdate merges a full snapshot pulled from the index.
type RemoteUpdate struct{ Tasks []task.Task }

// Reset empties the overlay.
type Reset struct{}

// SyncSucceeded records a successful add or edit dispatch. Written is the
// record as dispatched, with RawLine set to the text storage now holds.
// DispatchedAt is the entry's LastUpdated when the dispatch started.
type SyncSucceeded struct {
	ID           string
	DispatchedAt time.Time
	Written      task.Task
}

// SyncDeleted records a successful delete dispatch.
type SyncDeleted struct {
	ID           string
	DispatchedAt time.Time
}

// SyncFailed records a failed dispatch.
type SyncFailed struct {
	ID      string
	Message string
}

// ClearFailure resets the retry bookkeeping so the entry is retried again.
type ClearFailure struct{ ID string }

// SetEditing toggles the UI editing hint.
type SetEditing struct {
	ID      string
	Editing bool
}

func (LocalAdd) opName() string      { return "LOCAL_ADD" }
func (LocalUpdate) opName() string   { return "LOCAL_UPDATE" }
func (LocalDelete) opName() string   { return "LOCAL_DELETE" }
func (RemoteUpdate) opName() string  { return "REMOTE_UPDATE" }
func (Reset) opName() string         { return "RESET" }
func (SyncSucceeded) opName() string { return "SYNC_SUCCEEDED" }
func (SyncDeleted) opName() string   { return "SYNC_DELETED" }
func (SyncFailed) opName() string    { return "SYNC_FAILED" }
func (ClearFailure) opName() string  { return "CLEAR_FAILURE" }
func (SetEditing) opName() string    { return "SET_EDITING" }

// Name returns the operation tag, e.g. "REMOTE_UPDATE".
func Name(op Op) string {
	return op.opName()
}
