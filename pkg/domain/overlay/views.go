package overlay

import (
	"golang.org/x/text/cases"

	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// TagOption is one selectable tag. Value is case-folded, Label keeps the
// first spelling seen.
type TagOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Snapshot is an immutable view of the overlay at one point in time.
type Snapshot struct {
	Version uint64
	Entries []Entry
}

// Tasks returns the records of all entries, including those pending
// deletion.
func (s Snapshot) Tasks() []task.Task {
	out := make([]task.Task, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Task)
	}
	return out
}

// Visible returns the records a user should see; pending deletes are
// hidden.
func (s Snapshot) Visible() []task.Task {
	out := make([]task.Task, 0, len(s.Entries))
	for _, e := range s.Entries {
		if e.Meta.NeedsSync && e.Meta.Action == ActionDelete {
			continue
		}
		out = append(out, e.Task)
	}
	return out
}

// NeedingSync returns every entry with a local change storage has not
// confirmed, including entries that gave up.
func (s Snapshot) NeedingSync() []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Meta.NeedsSync {
			out = append(out, e)
		}
	}
	return out
}

// Dispatchable returns the entries the dispatcher should pick up: pending
// and not given up.
func (s Snapshot) Dispatchable() []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Dispatchable() {
			out = append(out, e)
		}
	}
	return out
}

// Failed returns entries that exhausted their retries.
func (s Snapshot) Failed() []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Meta.SyncFailed {
			out = append(out, e)
		}
	}
	return out
}

// ByStatus returns the visible records with the given status.
func (s Snapshot) ByStatus(status task.Status) []task.Task {
	var out []task.Task
	for _, t := range s.Visible() {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Entry looks up an entry by record id.
func (s Snapshot) Entry(id string) (Entry, bool) {
	if i := indexOf(s.Entries, id); i >= 0 {
		return s.Entries[i], true
	}
	return Entry{}, false
}

// AvailableTags lists the distinct tags across all records and their
// subtasks, in order of first appearance.
func (s Snapshot) AvailableTags() []TagOption {
	folder := cases.Fold()
	seen := make(map[string]bool)
	var out []TagOption

	for _, e := range s.Entries {
		e.Task.Walk(func(t task.Task) {
			for _, tag := range t.Tags {
				value := folder.String(tag)
				if seen[value] {
					continue
				}
				seen[value] = true
				out = append(out, TagOption{Value: value, Label: "#" + tag})
			}
		})
	}
	return out
}
