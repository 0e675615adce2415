package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskline/pkg/domain/builder"
	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/events"
	"github.com/felixgeelhaar/taskline/pkg/domain/overlay"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

var settings = Settings{DefaultPath: "Inbox.md", DefaultHeading: "## Tasks"}

func newTask(t *testing.T, id, desc string) task.Task {
	t.Helper()
	tk, err := builder.New().ID(id).Description(desc).Build()
	require.NoError(t, err)
	return tk
}

func newDispatcher(store *overlay.Store, w Writer, opts ...DispatcherOption) *Dispatcher {
	opts = append([]DispatcherOption{WithRetryDelay(0)}, opts...)
	return NewDispatcher(store, w, settings, opts...)
}

func entry(t *testing.T, store *overlay.Store, id string) overlay.Entry {
	t.Helper()
	e, ok := store.Snapshot().Entry(id)
	require.True(t, ok, "entry %q missing", id)
	return e
}

func TestDispatch_Add(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{Result: "- [ ] Buy milk [id:: a] [created:: 2024-05-01]"}
	rec := &recorder{}
	d := newDispatcher(store, w, WithPublisher(rec))

	tk := newTask(t, "a", "Buy milk")
	store.Apply(overlay.LocalAdd{Tasks: []task.Task{tk}})

	require.NoError(t, d.Dispatch(context.Background(), "a"))

	calls := w.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "create", calls[0].Op)
	assert.Equal(t, codec.Encode(tk), calls[0].Line)
	assert.Equal(t, builder.DefaultPath, calls[0].Path)
	assert.Equal(t, "## Tasks", calls[0].Heading)

	e := entry(t, store, "a")
	assert.False(t, e.Meta.NeedsSync)
	assert.Equal(t, overlay.ActionNone, e.Meta.Action)
	assert.False(t, e.Meta.LastSynced.IsZero())
	assert.Equal(t, w.Result, e.Task.RawLine)
	assert.Equal(t, []string{events.TypeTaskSynced}, rec.seen())
}

func TestDispatch_EditMergesAgainstStoredLine(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{}
	d := newDispatcher(store, w)

	stored := codec.Decode("- [ ] Call mom [id:: mom] [custom:: keep me]")
	stored.Path = "Life.md"
	store.Apply(overlay.RemoteUpdate{Tasks: []task.Task{stored}})

	edited, err := builder.From(stored).Status(task.StatusDone).Build()
	require.NoError(t, err)
	store.Apply(overlay.LocalUpdate{Tasks: []task.Task{edited}})

	require.NoError(t, d.Dispatch(context.Background(), "mom"))

	calls := w.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "edit", calls[0].Op)
	assert.Equal(t, stored.RawLine, calls[0].Lookup)
	assert.Equal(t, "Life.md", calls[0].Path)
	assert.Equal(t, "- [x] Call mom [id:: mom] [custom:: keep me]", calls[0].Line)

	e := entry(t, store, "mom")
	assert.False(t, e.Meta.NeedsSync)
	assert.Equal(t, calls[0].Line, e.Task.RawLine)
}

func TestDispatch_EditWithoutPreviousVersionIsFatal(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{}
	d := newDispatcher(store, w)

	tk := newTask(t, "x", "Orphan")
	store.Restore([]overlay.Entry{{
		Task: tk,
		Meta: overlay.Metadata{NeedsSync: true, Action: overlay.ActionEdit},
	}})

	err := d.Dispatch(context.Background(), "x")
	require.ErrorIs(t, err, ErrMissingPreviousVersion)

	assert.Empty(t, w.calls())
	e := entry(t, store, "x")
	assert.True(t, e.Meta.NeedsSync, "entry stays pending")
	assert.Zero(t, e.Meta.RetryCount, "not counted as a retry")
	assert.False(t, e.Meta.SyncFailed)
}

func TestDispatch_Delete(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{}
	d := newDispatcher(store, w)

	tk := newTask(t, "a", "Old")
	store.Apply(overlay.RemoteUpdate{Tasks: []task.Task{tk}})
	store.Apply(overlay.LocalDelete{Tasks: []task.Task{tk}})

	require.NoError(t, d.Dispatch(context.Background(), "a"))

	calls := w.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "delete", calls[0].Op)
	assert.Equal(t, tk.RawLine, calls[0].Lookup)
	_, ok := store.Snapshot().Entry("a")
	assert.False(t, ok)
}

func TestDispatch_RetryExhaustion(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{Fail: true}
	dead := &MockDeadLetters{}
	rec := &recorder{}
	d := newDispatcher(store, w, WithDeadLetters(dead), WithPublisher(rec))

	store.Apply(overlay.LocalAdd{Tasks: []task.Task{newTask(t, "a", "Doomed")}})

	for attempt := 1; attempt <= overlay.MaxRetries; attempt++ {
		err := d.Dispatch(context.Background(), "a")
		var syncErr *SyncError
		require.ErrorAs(t, err, &syncErr)
		assert.Equal(t, attempt, syncErr.Attempt)
		assert.ErrorIs(t, err, ErrRejected)
	}

	e := entry(t, store, "a")
	assert.Equal(t, 3, e.Meta.RetryCount)
	assert.True(t, e.Meta.SyncFailed)
	assert.Equal(t, ErrRejected.Error(), e.Meta.ErrorMessage)

	require.Len(t, dead.Letters, 1)
	assert.Equal(t, "a", dead.Letters[0].TaskID)
	assert.Equal(t, 3, dead.Letters[0].Attempts)
	assert.Contains(t, rec.seen(), events.TypeTaskSyncGaveUp)

	// Failed entries are skipped until the failure is cleared.
	require.NoError(t, d.Dispatch(context.Background(), "a"))
	assert.Len(t, w.calls(), 3)

	w.set(func(m *MockWriter) { m.Fail = false })
	store.Apply(overlay.ClearFailure{ID: "a"})
	require.NoError(t, d.Dispatch(context.Background(), "a"))
	assert.False(t, entry(t, store, "a").Meta.NeedsSync)
}

func TestDispatch_WriterErrorIsWrapped(t *testing.T) {
	store := overlay.NewStore()
	boom := errors.New("disk on fire")
	d := newDispatcher(store, &MockWriter{Err: boom})

	store.Apply(overlay.LocalAdd{Tasks: []task.Task{newTask(t, "a", "A")}})

	err := d.Dispatch(context.Background(), "a")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, boom.Error(), entry(t, store, "a").Meta.ErrorMessage)
}

func TestDispatch_SerializedPerID(t *testing.T) {
	store := overlay.NewStore()
	gate := make(chan struct{})
	w := &MockWriter{Gate: gate}
	d := newDispatcher(store, w)

	tk := newTask(t, "a", "First")
	store.Apply(overlay.LocalAdd{Tasks: []task.Task{tk}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.Dispatch(context.Background(), "a")
	}()
	require.Eventually(t, func() bool { return len(w.calls()) == 1 }, time.Second, time.Millisecond)

	// Edit while the create is in flight.
	edited, err := builder.From(tk).Description("Second").Build()
	require.NoError(t, err)
	store.Apply(overlay.LocalUpdate{Tasks: []task.Task{edited}})

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.Dispatch(context.Background(), "a")
	}()

	gate <- struct{}{}
	gate <- struct{}{}
	wg.Wait()

	calls := w.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 1, w.maxActive, "dispatches for one id never overlap")
	assert.Equal(t, "create", calls[0].Op)
	assert.Equal(t, "edit", calls[1].Op)
	assert.Equal(t, calls[0].Line, calls[1].Lookup, "the edit locates the line the create wrote")
	assert.Contains(t, calls[1].Line, "Second")

	e := entry(t, store, "a")
	assert.False(t, e.Meta.NeedsSync)
	assert.Equal(t, "Second", e.Task.Description)
}

func TestDispatcher_Run(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{}
	d := newDispatcher(store, w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	store.Apply(overlay.LocalAdd{Tasks: []task.Task{newTask(t, "a", "A"), newTask(t, "b", "B")}})

	require.Eventually(t, func() bool {
		return len(store.Snapshot().NeedingSync()) == 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Len(t, w.calls(), 2)
}

func TestDispatcher_RunRetriesUntilFailed(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{Fail: true}
	d := newDispatcher(store, w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	store.Apply(overlay.LocalAdd{Tasks: []task.Task{newTask(t, "a", "A")}})

	require.Eventually(t, func() bool {
		e, ok := store.Snapshot().Entry("a")
		return ok && e.Meta.SyncFailed
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, w.calls(), overlay.MaxRetries)
	assert.Equal(t, overlay.MaxRetries, entry(t, store, "a").Meta.RetryCount)
}

func TestDispatcher_Flush(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{}
	d := newDispatcher(store, w)

	store.Apply(overlay.LocalAdd{Tasks: []task.Task{newTask(t, "a", "A"), newTask(t, "b", "B")}})

	require.NoError(t, d.Flush(context.Background()))
	assert.Empty(t, store.Snapshot().NeedingSync())
	assert.Len(t, w.calls(), 2)
}

func TestDispatcher_FlushStopsAtMaxRetries(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{Fail: true}
	d := newDispatcher(store, w)

	store.Apply(overlay.LocalAdd{Tasks: []task.Task{newTask(t, "a", "A")}})

	err := d.Flush(context.Background())
	require.ErrorIs(t, err, ErrRejected)
	assert.True(t, entry(t, store, "a").Meta.SyncFailed)
	assert.Len(t, w.calls(), overlay.MaxRetries)
}

func TestDispatcher_FlushKeepsRetryingPastFatalEntries(t *testing.T) {
	store := overlay.NewStore()
	w := &MockWriter{FailCalls: 1}
	d := newDispatcher(store, w)

	store.Restore([]overlay.Entry{{
		Task: newTask(t, "x", "Orphan"),
		Meta: overlay.Metadata{NeedsSync: true, Action: overlay.ActionEdit},
	}})
	store.Apply(overlay.LocalAdd{Tasks: []task.Task{newTask(t, "a", "A")}})

	err := d.Flush(context.Background())
	require.ErrorIs(t, err, ErrMissingPreviousVersion)

	assert.Len(t, w.calls(), 2, "the transient failure got a second round")
	assert.False(t, entry(t, store, "a").Meta.NeedsSync)
	assert.True(t, entry(t, store, "x").Meta.NeedsSync)
}
