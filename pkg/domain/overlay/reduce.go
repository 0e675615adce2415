package overlay

import (
	"slices"
	"time"

	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// Reduce applies op to entries and returns the resulting entries. The
// input slice is never modified and now is the only clock consulted.
func Reduce(entries []Entry, op Op, now time.Time) []Entry {
	switch op := op.(type) {
	case LocalAdd:
		return localAdd(entries, op.Tasks, now)
	case LocalUpdate:
		return localUpdate(entries, op.Tasks, now)
	case LocalDelete:
		return localDelete(entries, op.Tasks, now)
	case RemoteUpdate:
		return remoteUpdate(entries, op.Tasks, now)
	case Reset:
		return []Entry{}
	case SyncSucceeded:
		return syncSucceeded(entries, op, now)
	case SyncDeleted:
		return syncDeleted(entries, op, now)
	case SyncFailed:
		return withEntry(entries, op.ID, func(e *Entry) {
			e.Meta.RetryCount++
			e.Meta.ErrorMessage = op.Message
			if e.Meta.RetryCount >= MaxRetries {
				e.Meta.SyncFailed = true
			}
		})
	case ClearFailure:
		return withEntry(entries, op.ID, func(e *Entry) {
			e.Meta.RetryCount = 0
			e.Meta.SyncFailed = false
			e.Meta.ErrorMessage = ""
		})
	case SetEditing:
		return withEntry(entries, op.ID, func(e *Entry) {
			e.Meta.IsEditing = op.Editing
		})
	default:
		return slices.Clone(entries)
	}
}

func localAdd(entries []Entry, tasks []task.Task, now time.Time) []Entry {
	out := slices.Clone(entries)
	for _, t := range tasks {
		// Ids stay unique; a second add of the same id is dropped.
		if indexOf(out, t.ID) >= 0 {
			continue
		}
		out = append(out, Entry{
			Task: t.Clone(),
			Meta: Metadata{
				LastUpdated: now,
				NeedsSync:   true,
				Action:      nextAction(ActionNone, eventLocalAdd),
			},
		})
	}
	return out
}

func localUpdate(entries []Entry, tasks []task.Task, now time.Time) []Entry {
	out := slices.Clone(entries)
	for _, t := range tasks {
		i := indexOf(out, t.ID)
		if i < 0 {
			continue
		}
		existing := out[i]
		updated := t.Clone()
		if updated.RawLine == "" {
			updated.RawLine = existing.Task.RawLine
		}

		meta := existing.Meta
		// A pending change already remembers what storage holds.
		if !(meta.NeedsSync && meta.PreviousVersion != nil) {
			prev := existing.Task.Clone()
			meta.PreviousVersion = &prev
		}
		meta.NeedsSync = true
		meta.Action = nextAction(meta.Action, eventLocalUpdate)
		meta.LastUpdated = now

		out[i] = Entry{Task: updated, Meta: meta}
	}
	return out
}

func localDelete(entries []Entry, tasks []task.Task, now time.Time) []Entry {
	out := slices.Clone(entries)
	for _, t := range tasks {
		i := indexOf(out, t.ID)
		if i < 0 {
			continue
		}
		// Settled entries match storage; pending ones already remember
		// what storage holds, if anything.
		if !out[i].Meta.NeedsSync {
			stored := out[i].Task.Clone()
			out[i].Meta.PreviousVersion = &stored
		}
		out[i].Meta.NeedsSync = true
		out[i].Meta.Action = nextAction(out[i].Meta.Action, eventLocalDelete)
		out[i].Meta.LastUpdated = now
	}
	return out
}

func remoteUpdate(entries []Entry, remote []task.Task, now time.Time) []Entry {
	out := slices.Clone(entries)

	remoteIDs := make(map[string]bool, len(remote))
	for _, t := range remote {
		remoteIDs[t.ID] = true
	}
	// Entries already claimed by a remote record of this batch.
	claimed := make(map[string]bool, len(remote))

	for _, rt := range remote {
		i := indexOf(out, rt.ID)
		if i < 0 {
			i = indexByFingerprint(out, rt.Fingerprint(), remoteIDs, claimed)
			if i >= 0 && !out[i].Meta.NeedsSync {
				out[i].Task.ID = rt.ID
			}
		}
		if i >= 0 {
			claimed[out[i].Task.ID] = true
		}

		switch {
		case i < 0:
			out = append(out, Entry{
				Task: rt.Clone(),
				Meta: Metadata{LastSynced: now, Action: ActionNone},
			})
			claimed[rt.ID] = true
		case out[i].Meta.NeedsSync:
			// Local work that has not reached storage wins.
		default:
			prev := out[i].Task
			meta := out[i].Meta
			meta.PreviousVersion = &prev
			meta.LastSynced = now
			meta.NeedsSync = false
			meta.Action = ActionNone
			out[i] = Entry{Task: rt.Clone(), Meta: meta}
		}
	}

	return slices.DeleteFunc(out, func(e Entry) bool {
		return !remoteIDs[e.Task.ID] && !e.Meta.NeedsSync
	})
}

func syncSucceeded(entries []Entry, op SyncSucceeded, now time.Time) []Entry {
	return withEntry(entries, op.ID, func(e *Entry) {
		clearRetry(&e.Meta)
		e.Meta.LastSynced = now

		if e.Meta.LastUpdated.Equal(op.DispatchedAt) {
			if op.Written.RawLine != "" {
				e.Task.RawLine = op.Written.RawLine
			}
			e.Meta.NeedsSync = false
			e.Meta.Action = nextAction(e.Meta.Action, eventSynced)
			return
		}

		// Modified while in flight: storage now holds the written version
		// and the newer local state still has to follow.
		written := op.Written.Clone()
		e.Meta.PreviousVersion = &written
		e.Meta.Action = nextAction(e.Meta.Action, eventSyncedStale)
		if e.Meta.Action == ActionDelete {
			e.Task.RawLine = written.RawLine
		}
	})
}

func syncDeleted(entries []Entry, op SyncDeleted, now time.Time) []Entry {
	i := indexOf(entries, op.ID)
	if i < 0 {
		return slices.Clone(entries)
	}
	e := entries[i]
	if e.Meta.LastUpdated.Equal(op.DispatchedAt) || e.Meta.Action == ActionDelete {
		out := slices.Clone(entries)
		return slices.Delete(out, i, i+1)
	}

	// Edited while the delete was in flight: write it back as a new line.
	out := slices.Clone(entries)
	meta := e.Meta
	clearRetry(&meta)
	meta.LastSynced = now
	meta.PreviousVersion = nil
	meta.Action = nextAction(meta.Action, eventRemovedStale)
	out[i].Meta = meta
	return out
}

func clearRetry(m *Metadata) {
	m.RetryCount = 0
	m.SyncFailed = false
	m.ErrorMessage = ""
}

// withEntry returns a copy of entries with fn applied to the entry with id.
func withEntry(entries []Entry, id string, fn func(*Entry)) []Entry {
	out := slices.Clone(entries)
	if i := indexOf(out, id); i >= 0 {
		fn(&out[i])
	}
	return out
}

func indexOf(entries []Entry, id string) int {
	return slices.IndexFunc(entries, func(e Entry) bool { return e.Task.ID == id })
}

// indexByFingerprint finds an entry with the same description and status
// whose id is not taken by the remote batch.
func indexByFingerprint(entries []Entry, fp task.Fingerprint, remoteIDs, claimed map[string]bool) int {
	return slices.IndexFunc(entries, func(e Entry) bool {
		id := e.Task.ID
		return !remoteIDs[id] && !claimed[id] && e.Task.Fingerprint() == fp
	})
}
