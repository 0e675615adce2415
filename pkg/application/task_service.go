package application

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/taskline/pkg/domain/builder"
	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/overlay"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// TaskService turns user intent into overlay operations. Every record goes
// through the builder before it reaches the store.
type TaskService struct {
	store    *overlay.Store
	defaults builder.Defaults
	clock    func() time.Time
	logger   *slog.Logger
}

// NewTaskService creates a TaskService. A nil logger means slog.Default().
func NewTaskService(store *overlay.Store, defaults builder.Defaults, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{store: store, defaults: defaults, clock: time.Now, logger: logger}
}

// NewBuilder returns a builder seeded with the configured defaults.
func (s *TaskService) NewBuilder() *builder.Builder {
	return builder.NewWithDefaults(s.defaults)
}

// List returns the records a user should see.
func (s *TaskService) List() []task.Task {
	return s.store.Snapshot().Visible()
}

// Get returns the entry with id.
func (s *TaskService) Get(id string) (overlay.Entry, error) {
	e, ok := s.store.Snapshot().Entry(id)
	if !ok {
		return overlay.Entry{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return e, nil
}

// Add builds a new record and queues it for creation.
func (s *TaskService) Add(b *builder.Builder) (task.Task, error) {
	t, err := b.Build()
	if err != nil {
		return task.Task{}, err
	}
	if _, ok := s.store.Snapshot().Entry(t.ID); ok {
		return task.Task{}, fmt.Errorf("%w: %s", ErrDuplicateID, t.ID)
	}

	s.store.Apply(overlay.LocalAdd{Tasks: []task.Task{t}})
	s.logger.Info("task added", "task_id", t.ID, "path", t.Path)
	return t, nil
}

// Update applies edit to the record with id and queues the change. The id
// cannot be changed. Nothing is queued when edit fails.
func (s *TaskService) Update(id string, edit func(*builder.Builder) error) (task.Task, error) {
	e, err := s.live(id)
	if err != nil {
		return task.Task{}, err
	}

	b := builder.From(e.Task)
	if err := edit(b); err != nil {
		return task.Task{}, err
	}
	t, err := b.ID(id).Build()
	if err != nil {
		return task.Task{}, err
	}
	if e.Task.RawLine != "" {
		t.RawLine = codec.Merge(t, e.Task.RawLine)
	}

	s.store.Apply(overlay.LocalUpdate{Tasks: []task.Task{t}})
	s.logger.Info("task updated", "task_id", id)
	return t, nil
}

// SetStatus changes the status of a record. Moving to done stamps the
// completion date; leaving done clears it.
func (s *TaskService) SetStatus(id string, status task.Status) (task.Task, error) {
	if !status.IsValid() {
		return task.Task{}, &builder.ValidationError{Message: fmt.Sprintf("status: unknown value %q", status)}
	}
	return s.Update(id, func(b *builder.Builder) error {
		b.Status(status)
		if status == task.StatusDone {
			b.Done(s.clock())
		} else {
			b.Done(time.Time{})
		}
		return nil
	})
}

// Delete queues the record for removal from storage.
func (s *TaskService) Delete(id string) error {
	e, err := s.live(id)
	if err != nil {
		return err
	}
	s.store.Apply(overlay.LocalDelete{Tasks: []task.Task{e.Task}})
	s.logger.Info("task deleted locally", "task_id", id)
	return nil
}

// Retry clears the failure bookkeeping so the dispatcher picks the record
// up again.
func (s *TaskService) Retry(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	s.store.Apply(overlay.ClearFailure{ID: id})
	s.logger.Info("task retry requested", "task_id", id)
	return nil
}

// SetEditing marks a record as being edited in a client.
func (s *TaskService) SetEditing(id string, editing bool) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	s.store.Apply(overlay.SetEditing{ID: id, Editing: editing})
	return nil
}

// live returns the entry unless it is missing or waiting to be deleted.
func (s *TaskService) live(id string) (overlay.Entry, error) {
	e, err := s.Get(id)
	if err != nil {
		return overlay.Entry{}, err
	}
	if e.Meta.NeedsSync && e.Meta.Action == overlay.ActionDelete {
		return overlay.Entry{}, fmt.Errorf("%w: %s is being deleted", ErrTaskNotFound, id)
	}
	return e, nil
}
