// Package events defines the notifications raised while records move
// between the overlay and storage.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every published event.
type Event interface {
	EventType() string
	TaskID() string
	OccurredAt() time.Time
}

// Base carries the fields common to all events.
type Base struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Task      string    `json:"task_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newBase(eventType, taskID string, at time.Time) Base {
	return Base{ID: uuid.NewString(), Type: eventType, Task: taskID, Timestamp: at}
}

func (e Base) EventType() string     { return e.Type }
func (e Base) TaskID() string        { return e.Task }
func (e Base) OccurredAt() time.Time { return e.Timestamp }

// Event types.
const (
	TypeTaskSynced      = "sync.succeeded"
	TypeTaskSyncFailed  = "sync.failed"
	TypeTaskSyncGaveUp  = "sync.exhausted"
	TypeIndexRefreshed  = "index.refreshed"
	TypeDocumentChanged = "document.changed"
)

// TaskSynced is raised when storage confirmed a write.
type TaskSynced struct {
	Base
	Action  string `json:"action"`
	Path    string `json:"path"`
	RawLine string `json:"raw_line,omitempty"`
}

// NewTaskSynced builds a TaskSynced event.
func NewTaskSynced(taskID, action, path, rawLine string, at time.Time) TaskSynced {
	return TaskSynced{
		Base:    newBase(TypeTaskSynced, taskID, at),
		Action:  action,
		Path:    path,
		RawLine: rawLine,
	}
}

// TaskSyncFailed is raised for every failed write attempt.
type TaskSyncFailed struct {
	Base
	Action  string `json:"action"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

// NewTaskSyncFailed builds a TaskSyncFailed event.
func NewTaskSyncFailed(taskID, action string, attempt int, errMsg string, at time.Time) TaskSyncFailed {
	return TaskSyncFailed{
		Base:    newBase(TypeTaskSyncFailed, taskID, at),
		Action:  action,
		Attempt: attempt,
		Error:   errMsg,
	}
}

// TaskSyncGaveUp is raised once a record ran out of retries.
type TaskSyncGaveUp struct {
	Base
	Action   string `json:"action"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// NewTaskSyncGaveUp builds a TaskSyncGaveUp event.
func NewTaskSyncGaveUp(taskID, action string, attempts int, errMsg string, at time.Time) TaskSyncGaveUp {
	return TaskSyncGaveUp{
		Base:     newBase(TypeTaskSyncGaveUp, taskID, at),
		Action:   action,
		Attempts: attempts,
		Error:    errMsg,
	}
}

// IndexRefreshed is raised after a remote snapshot was merged.
type IndexRefreshed struct {
	Base
	Records int `json:"records"`
}

// NewIndexRefreshed builds an IndexRefreshed event.
func NewIndexRefreshed(records int, at time.Time) IndexRefreshed {
	return IndexRefreshed{Base: newBase(TypeIndexRefreshed, "", at), Records: records}
}

// DocumentChanged is raised when a watched document changes on disk.
type DocumentChanged struct {
	Base
	Path       string `json:"path"`
	ChangeType string `json:"change_type"`
}

// NewDocumentChanged builds a DocumentChanged event.
func NewDocumentChanged(path, changeType string, at time.Time) DocumentChanged {
	return DocumentChanged{
		Base:       newBase(TypeDocumentChanged, "", at),
		Path:       path,
		ChangeType: changeType,
	}
}
