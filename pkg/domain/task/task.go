// Package task defines the structured record behind one checklist line.
package task

import (
	"slices"
	"time"
)

// Task is one checklist item. Dates are calendar dates at UTC midnight; the
// zero time means the date is absent.
type Task struct {
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	Priority      Priority  `json:"priority,omitempty"`
	Status        Status    `json:"status"`
	Recurs        string    `json:"recurs,omitempty"`
	CreatedDate   time.Time `json:"created_date,omitzero"`
	StartDate     time.Time `json:"start_date,omitzero"`
	ScheduledDate time.Time `json:"scheduled_date,omitzero"`
	DueDate       time.Time `json:"due_date,omitzero"`
	DoneDate      time.Time `json:"done_date,omitzero"`
	Blocks        []string  `json:"blocks,omitempty"`
	Path          string    `json:"path"`
	Symbol        string    `json:"symbol,omitempty"`
	Source        string    `json:"source,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Subtasks      []Task    `json:"subtasks,omitempty"`
	RawLine       string    `json:"raw_line,omitempty"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.Blocks = slices.Clone(t.Blocks)
	c.Tags = slices.Clone(t.Tags)
	if t.Subtasks != nil {
		c.Subtasks = make([]Task, len(t.Subtasks))
		for i, s := range t.Subtasks {
			c.Subtasks[i] = s.Clone()
		}
	}
	return c
}

// HasSubtasks returns true if the task has at least one child.
func (t Task) HasSubtasks() bool {
	return len(t.Subtasks) > 0
}

// Walk calls fn for the task and every descendant, depth first.
func (t Task) Walk(fn func(Task)) {
	fn(t)
	for _, s := range t.Subtasks {
		s.Walk(fn)
	}
}

// Fingerprint is the fallback matching key used when ids do not align.
type Fingerprint struct {
	Description string
	Status      Status
}

// Fingerprint returns the (description, status) matching key.
func (t Task) Fingerprint() Fingerprint {
	return Fingerprint{Description: t.Description, Status: t.Status}
}

// SameFields reports whether two tasks agree on every tracked field,
// ignoring RawLine. Nil and empty slices compare equal.
func SameFields(a, b Task) bool {
	if a.ID != b.ID ||
		a.Description != b.Description ||
		a.Priority != b.Priority ||
		a.Status != b.Status ||
		a.Recurs != b.Recurs ||
		!a.CreatedDate.Equal(b.CreatedDate) ||
		!a.StartDate.Equal(b.StartDate) ||
		!a.ScheduledDate.Equal(b.ScheduledDate) ||
		!a.DueDate.Equal(b.DueDate) ||
		!a.DoneDate.Equal(b.DoneDate) ||
		a.Path != b.Path ||
		a.Symbol != b.Symbol ||
		a.Source != b.Source {
		return false
	}
	if !slices.Equal(a.Blocks, b.Blocks) || !slices.Equal(a.Tags, b.Tags) {
		return false
	}
	if len(a.Subtasks) != len(b.Subtasks) {
		return false
	}
	for i := range a.Subtasks {
		if !SameFields(a.Subtasks[i], b.Subtasks[i]) {
			return false
		}
	}
	return true
}
