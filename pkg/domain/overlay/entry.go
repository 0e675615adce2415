// Package overlay holds the in-memory view of task records together with
// their synchronization state, and the pure transition function that
// changes it.
package overlay

import (
	"time"

	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// MaxRetries is the number of failed dispatches after which an entry is
// flagged as failed and no longer retried automatically.
const MaxRetries = 3

// Action is the pending write an entry is waiting for.
type Action string

const (
	ActionNone   Action = "none"
	ActionAdd    Action = "add"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// IsValid returns true for the known actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionNone, ActionAdd, ActionEdit, ActionDelete:
		return true
	default:
		return false
	}
}

// Metadata tracks the synchronization state of one entry.
type Metadata struct {
	LastUpdated time.Time `json:"last_updated,omitzero"`
	LastSynced  time.Time `json:"last_synced,omitzero"`
	NeedsSync   bool      `json:"needs_sync"`
	Action      Action    `json:"action"`
	// PreviousVersion is the record as storage currently holds it; edits are
	// located in the document through its raw line.
	PreviousVersion *task.Task `json:"previous_version,omitempty"`
	IsEditing       bool       `json:"is_editing,omitempty"`
	RetryCount      int        `json:"retry_count,omitempty"`
	SyncFailed      bool       `json:"sync_failed,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// Entry pairs a record with its synchronization state.
type Entry struct {
	Task task.Task `json:"task"`
	Meta Metadata  `json:"meta"`
}

// ID returns the id of the entry's record.
func (e Entry) ID() string {
	return e.Task.ID
}

// Dispatchable reports whether the dispatcher should pick the entry up.
func (e Entry) Dispatchable() bool {
	return e.Meta.NeedsSync && !e.Meta.SyncFailed && e.Meta.Action != ActionNone
}
