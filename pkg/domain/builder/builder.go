// Package builder assembles task records step by step and only hands out
// records that validate and carry their canonical line.
package builder

import (
	"slices"
	"strings"
	"time"

	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

const (
	DefaultPath   = "Tasks.md"
	DefaultSource = "taskline"
)

// Defaults are the values applied to fields the caller never sets.
type Defaults struct {
	Path   string
	Source string
}

// ValidationError is returned by Build for records that fail validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid task: " + e.Message
}

// Result is the outcome of Finalize. Task is nil unless Valid.
type Result struct {
	Valid   bool
	Message string
	Task    *task.Task
}

// Builder accumulates a partial task.
type Builder struct {
	t    task.Task
	tags []string
}

// New returns a builder with a fresh id, the default path and source, and
// status todo.
func New() *Builder {
	return NewWithDefaults(Defaults{})
}

// NewWithDefaults is New with caller-supplied defaults. Empty fields of d
// fall back to the package defaults.
func NewWithDefaults(d Defaults) *Builder {
	if d.Path == "" {
		d.Path = DefaultPath
	}
	if d.Source == "" {
		d.Source = DefaultSource
	}
	return &Builder{t: task.Task{
		ID:     codec.NewID(),
		Path:   d.Path,
		Source: d.Source,
		Status: task.StatusTodo,
	}}
}

// From seeds a builder with an existing record, e.g. to edit it.
func From(t task.Task) *Builder {
	return &Builder{t: t.Clone()}
}

func (b *Builder) ID(id string) *Builder {
	b.t.ID = strings.TrimSpace(id)
	return b
}

func (b *Builder) Description(d string) *Builder {
	b.t.Description = strings.TrimSpace(d)
	return b
}

func (b *Builder) Priority(p task.Priority) *Builder {
	b.t.Priority = p
	return b
}

func (b *Builder) Status(s task.Status) *Builder {
	b.t.Status = s
	return b
}

func (b *Builder) Recurs(rule string) *Builder {
	b.t.Recurs = strings.TrimSpace(rule)
	return b
}

func (b *Builder) Created(d time.Time) *Builder {
	b.t.CreatedDate = codec.NormalizeDate(d)
	return b
}

func (b *Builder) Start(d time.Time) *Builder {
	b.t.StartDate = codec.NormalizeDate(d)
	return b
}

func (b *Builder) Scheduled(d time.Time) *Builder {
	b.t.ScheduledDate = codec.NormalizeDate(d)
	return b
}

func (b *Builder) Due(d time.Time) *Builder {
	b.t.DueDate = codec.NormalizeDate(d)
	return b
}

func (b *Builder) Done(d time.Time) *Builder {
	b.t.DoneDate = codec.NormalizeDate(d)
	return b
}

// Blocks replaces the ids this record depends on.
func (b *Builder) Blocks(ids ...string) *Builder {
	b.t.Blocks = slices.Clone(ids)
	if len(b.t.Blocks) == 0 {
		b.t.Blocks = nil
	}
	return b
}

func (b *Builder) Path(p string) *Builder {
	b.t.Path = strings.TrimSpace(p)
	return b
}

func (b *Builder) Symbol(s string) *Builder {
	b.t.Symbol = s
	return b
}

func (b *Builder) Source(s string) *Builder {
	b.t.Source = s
	return b
}

// Tags adds tags. Tags live in the description as #words, so Finalize
// appends any tag the description does not mention yet.
func (b *Builder) Tags(tags ...string) *Builder {
	for _, tag := range tags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag != "" && !slices.Contains(b.tags, tag) {
			b.tags = append(b.tags, tag)
		}
	}
	return b
}

// Subtasks replaces the children of the record.
func (b *Builder) Subtasks(subs ...task.Task) *Builder {
	b.t.Subtasks = nil
	for _, s := range subs {
		b.t.Subtasks = append(b.t.Subtasks, s.Clone())
	}
	return b
}

// AddSubtask appends one child.
func (b *Builder) AddSubtask(sub task.Task) *Builder {
	b.t.Subtasks = append(b.t.Subtasks, sub.Clone())
	return b
}

// Finalize validates the accumulated record and, when valid, attaches the
// canonical raw line.
func (b *Builder) Finalize() Result {
	t := b.t.Clone()
	t.Description = withTags(t.Description, b.tags)
	t.Tags = codec.ExtractTags(t.Description)

	if msg := validate(t); msg != "" {
		return Result{Valid: false, Message: msg}
	}

	canonicalize(&t)
	return Result{Valid: true, Task: &t}
}

// Build finalizes the record and returns it, or a *ValidationError.
func (b *Builder) Build() (task.Task, error) {
	res := b.Finalize()
	if !res.Valid {
		return task.Task{}, &ValidationError{Message: res.Message}
	}
	return *res.Task, nil
}

// canonicalize sets RawLine to the encoded text on t and all descendants.
func canonicalize(t *task.Task) {
	for i := range t.Subtasks {
		canonicalize(&t.Subtasks[i])
	}
	t.RawLine = codec.Encode(*t)
}

func withTags(description string, tags []string) string {
	present := codec.ExtractTags(description)
	for _, tag := range tags {
		if slices.Contains(present, tag) {
			continue
		}
		if description != "" {
			description += " "
		}
		description += "#" + tag
		present = append(present, tag)
	}
	return description
}
