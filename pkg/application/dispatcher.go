package application

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/events"
	"github.com/felixgeelhaar/taskline/pkg/domain/overlay"
)

// DefaultRetryDelay is the pause before the first re-dispatch of a failed
// entry. It doubles with every further failure.
const DefaultRetryDelay = 500 * time.Millisecond

// Dispatcher pushes pending overlay entries to the Writer and records the
// outcome back in the store. Dispatches for one id never overlap; different
// ids run concurrently.
type Dispatcher struct {
	store       *overlay.Store
	writer      Writer
	settings    Settings
	publisher   Publisher
	deadLetters DeadLetterSink
	logger      *slog.Logger
	clock       func() time.Time
	retryDelay  time.Duration

	mu       sync.Mutex
	locks    map[string]*idLock
	inflight map[string]bool
	pending  map[string]bool
	wg       sync.WaitGroup
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPublisher publishes sync events to p.
func WithPublisher(p Publisher) DispatcherOption {
	return func(d *Dispatcher) {
		if p != nil {
			d.publisher = p
		}
	}
}

// WithDeadLetters records exhausted writes in sink.
func WithDeadLetters(sink DeadLetterSink) DispatcherOption {
	return func(d *Dispatcher) { d.deadLetters = sink }
}

// WithDispatchLogger sets the logger. A nil logger means slog.Default().
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRetryDelay sets the base delay between automatic retries.
func WithRetryDelay(delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.retryDelay = delay }
}

// WithDispatchClock replaces time.Now for event timestamps.
func WithDispatchClock(clock func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.clock = clock }
}

// NewDispatcher creates a Dispatcher over store.
func NewDispatcher(store *overlay.Store, writer Writer, settings Settings, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		writer:     writer,
		settings:   settings,
		publisher:  nopPublisher{},
		logger:     slog.Default(),
		clock:      time.Now,
		retryDelay: DefaultRetryDelay,
		locks:      make(map[string]*idLock),
		inflight:   make(map[string]bool),
		pending:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run dispatches pending entries whenever the store changes, until ctx is
// cancelled. Dispatches already in flight are allowed to finish.
func (d *Dispatcher) Run(ctx context.Context) error {
	changes, unsubscribe := d.store.Subscribe()
	defer unsubscribe()

	d.schedulePending(ctx)
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return nil
		case <-changes:
			d.schedulePending(ctx)
		}
	}
}

// Flush dispatches every pending entry until nothing dispatchable is left
// or each entry had its full share of attempts. It returns the failures of
// the last round.
func (d *Dispatcher) Flush(ctx context.Context) error {
	var errs []error
	for round := 0; round < overlay.MaxRetries; round++ {
		pending := d.store.Snapshot().Dispatchable()
		if len(pending) == 0 || ctx.Err() != nil {
			break
		}
		errs = d.dispatchAll(ctx, pending)
		// Another round cannot fix a missing previous version.
		if !slices.ContainsFunc(errs, retryable) {
			break
		}
	}
	return errors.Join(errs...)
}

func retryable(err error) bool {
	return !errors.Is(err, ErrMissingPreviousVersion)
}

func (d *Dispatcher) dispatchAll(ctx context.Context, entries []overlay.Entry) []error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, e := range entries {
		id := e.ID()
		g.Go(func() error {
			if err := d.Dispatch(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (d *Dispatcher) schedulePending(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for _, e := range d.store.Snapshot().Dispatchable() {
		d.schedule(ctx, e.ID())
	}
}

// schedule starts a worker for id, or marks it for another pass when a
// worker is already running.
func (d *Dispatcher) schedule(ctx context.Context, id string) {
	d.mu.Lock()
	if d.inflight[id] {
		d.pending[id] = true
		d.mu.Unlock()
		return
	}
	d.inflight[id] = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			if err := d.Dispatch(ctx, id); err != nil {
				d.logger.Debug("dispatch returned error", "task_id", id, "error", err)
			}

			d.mu.Lock()
			if !d.pending[id] || ctx.Err() != nil {
				delete(d.inflight, id)
				delete(d.pending, id)
				d.mu.Unlock()
				return
			}
			delete(d.pending, id)
			d.mu.Unlock()
		}
	}()
}

// Dispatch performs one write for the entry with id, if it is pending. The
// writer call is not cancelled with ctx once it started, and its outcome
// is always recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, id string) error {
	unlock := d.lock(id)
	defer unlock()

	entry, ok := d.store.Snapshot().Entry(id)
	if !ok || !entry.Dispatchable() {
		return nil
	}
	if err := d.backoff(ctx, entry.Meta.RetryCount); err != nil {
		return err
	}
	// Re-read: the entry may have changed while waiting.
	entry, ok = d.store.Snapshot().Entry(id)
	if !ok || !entry.Dispatchable() {
		return nil
	}

	callCtx := context.WithoutCancel(ctx)
	switch entry.Meta.Action {
	case overlay.ActionAdd:
		return d.create(callCtx, entry)
	case overlay.ActionEdit:
		return d.edit(callCtx, entry)
	case overlay.ActionDelete:
		return d.remove(callCtx, entry)
	default:
		return nil
	}
}

func (d *Dispatcher) create(ctx context.Context, entry overlay.Entry) error {
	line := codec.Encode(entry.Task)
	path := d.pathOf(entry.Task.Path)

	written, ok, err := d.writer.Create(ctx, line, path, d.settings.DefaultHeading)
	if err == nil && !ok {
		err = ErrRejected
	}
	if err != nil {
		return d.fail(ctx, entry, path, line, "", err)
	}
	if written == "" {
		written = line
	}
	return d.succeed(ctx, entry, path, written)
}

func (d *Dispatcher) edit(ctx context.Context, entry overlay.Entry) error {
	prev := entry.Meta.PreviousVersion
	if prev == nil {
		d.logger.Error("edit without previous version; entry left pending",
			"task_id", entry.ID(),
			"action", string(entry.Meta.Action))
		return &SyncError{TaskID: entry.ID(), Action: entry.Meta.Action, Err: ErrMissingPreviousVersion}
	}

	lookup := prev.RawLine
	line := codec.Merge(entry.Task, lookup)
	path := d.pathOf(prev.Path)

	written, ok, err := d.writer.Edit(ctx, line, lookup, path)
	if err == nil && !ok {
		err = ErrRejected
	}
	if err != nil {
		return d.fail(ctx, entry, path, line, lookup, err)
	}
	if written == "" {
		written = line
	}
	return d.succeed(ctx, entry, path, written)
}

func (d *Dispatcher) remove(ctx context.Context, entry overlay.Entry) error {
	// Storage holds the previous version when the delete follows local
	// edits that never landed.
	stored := entry.Task
	if prev := entry.Meta.PreviousVersion; prev != nil {
		stored = *prev
	}
	lookup := stored.RawLine
	path := d.pathOf(stored.Path)

	ok, err := d.writer.Delete(ctx, lookup, path)
	if err == nil && !ok {
		err = ErrRejected
	}
	if err != nil {
		return d.fail(ctx, entry, path, "", lookup, err)
	}

	d.store.Apply(overlay.SyncDeleted{ID: entry.ID(), DispatchedAt: entry.Meta.LastUpdated})
	d.logger.Info("task deleted", "task_id", entry.ID(), "path", path)
	d.publish(ctx, events.NewTaskSynced(entry.ID(), string(overlay.ActionDelete), path, "", d.clock()))
	return nil
}

func (d *Dispatcher) succeed(ctx context.Context, entry overlay.Entry, path, written string) error {
	w := entry.Task.Clone()
	w.RawLine = written
	if w.Path == "" {
		w.Path = path
	}
	d.store.Apply(overlay.SyncSucceeded{
		ID:           entry.ID(),
		DispatchedAt: entry.Meta.LastUpdated,
		Written:      w,
	})

	action := string(entry.Meta.Action)
	d.logger.Info("task synced", "task_id", entry.ID(), "action", action, "path", path)
	d.publish(ctx, events.NewTaskSynced(entry.ID(), action, path, written, d.clock()))
	return nil
}

// fail runs the shared failure path and returns the resulting SyncError.
func (d *Dispatcher) fail(ctx context.Context, entry overlay.Entry, path, line, lookup string, cause error) error {
	id := entry.ID()
	action := entry.Meta.Action

	snap := d.store.Apply(overlay.SyncFailed{ID: id, Message: cause.Error()})
	attempt := entry.Meta.RetryCount + 1
	exhausted := false
	if after, ok := snap.Entry(id); ok {
		attempt = after.Meta.RetryCount
		exhausted = after.Meta.SyncFailed
	}

	d.logger.Warn("sync failed",
		"task_id", id,
		"action", string(action),
		"retry_count", attempt,
		"error", cause)
	d.publish(ctx, events.NewTaskSyncFailed(id, string(action), attempt, cause.Error(), d.clock()))

	if exhausted {
		d.logger.Error("sync gave up", "task_id", id, "action", string(action), "retry_count", attempt)
		d.publish(ctx, events.NewTaskSyncGaveUp(id, string(action), attempt, cause.Error(), d.clock()))
		if d.deadLetters != nil {
			dl := events.DeadLetter{
				Timestamp: d.clock(),
				TaskID:    id,
				Action:    string(action),
				Path:      path,
				Line:      line,
				Lookup:    lookup,
				Error:     cause.Error(),
				Attempts:  attempt,
			}
			if err := d.deadLetters.Append(dl); err != nil {
				d.logger.Error("dead letter append failed", "task_id", id, "error", err)
			}
		}
	}

	return &SyncError{TaskID: id, Action: action, Attempt: attempt, Err: cause}
}

func (d *Dispatcher) publish(ctx context.Context, event events.Event) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Warn("event handler failed", "event_type", event.EventType(), "error", err)
	}
}

func (d *Dispatcher) pathOf(p string) string {
	if p != "" {
		return p
	}
	return d.settings.DefaultPath
}

func (d *Dispatcher) backoff(ctx context.Context, retries int) error {
	if retries == 0 || d.retryDelay <= 0 {
		return nil
	}
	delay := d.retryDelay << (retries - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lock serializes work on one id and returns the matching unlock.
func (d *Dispatcher) lock(id string) func() {
	d.mu.Lock()
	l, ok := d.locks[id]
	if !ok {
		l = &idLock{}
		d.locks[id] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, id)
		}
		d.mu.Unlock()
	}
}
