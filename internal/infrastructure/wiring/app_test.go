package wiring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskline/internal/infrastructure/config"
	"github.com/felixgeelhaar/taskline/pkg/domain/events"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

func TestBuild_SyncOnceWritesAndCheckpoints(t *testing.T) {
	root := t.TempDir()
	app, err := Build(root, Options{RetryDelay: time.Millisecond})
	require.NoError(t, err)
	defer app.Close()

	added, err := app.Tasks.Add(app.Tasks.NewBuilder().ID("milk").Description("Buy milk #errand"))
	require.NoError(t, err)

	require.NoError(t, app.SyncOnce(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, "Tasks.md"))
	require.NoError(t, err)
	assert.Equal(t, "## Inbox\n"+added.RawLine+"\n", string(data))

	entry, ok := app.Store.Snapshot().Entry("milk")
	require.True(t, ok)
	assert.False(t, entry.Meta.NeedsSync)

	records, err := app.Journal.Tail(0)
	require.NoError(t, err)
	var types []string
	for _, r := range records {
		types = append(types, r.Type)
	}
	assert.Contains(t, types, events.TypeTaskSynced)
	assert.Contains(t, types, events.TypeIndexRefreshed)

	reopened, err := Build(root, Options{})
	require.NoError(t, err)
	defer reopened.Close()
	restored, ok := reopened.Store.Snapshot().Entry("milk")
	require.True(t, ok, "checkpoint should restore the overlay")
	assert.Equal(t, "Buy milk #errand", restored.Task.Description)
}

func TestBuild_PendingChangesSurviveRestart(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.DefaultPath = "Inbox.md"
	require.NoError(t, config.Save(root, cfg))

	app, err := Build(root, Options{})
	require.NoError(t, err)
	_, err = app.Tasks.Add(app.Tasks.NewBuilder().ID("later").Description("Write later"))
	require.NoError(t, err)
	require.NoError(t, app.Save())
	app.Close()

	again, err := Build(root, Options{})
	require.NoError(t, err)
	defer again.Close()
	pending := again.Store.Snapshot().NeedingSync()
	require.Len(t, pending, 1)
	assert.Equal(t, "Inbox.md", pending[0].Task.Path)

	require.NoError(t, again.SyncOnce(context.Background()))
	data, err := os.ReadFile(filepath.Join(root, "Inbox.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Write later")
}

func TestServe_PicksUpDocumentEdits(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.RefreshInterval = 0
	cfg.Watch.Debounce = 20 * time.Millisecond
	require.NoError(t, config.Save(root, cfg))

	app, err := Build(root, Options{})
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Home.md"), []byte("- [x] Water plants [id:: plants]\n"), 0600))

	assert.Eventually(t, func() bool {
		e, ok := app.Store.Snapshot().Entry("plants")
		return ok && e.Task.Status == task.StatusDone
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not stop")
	}

	reopened, err := Build(root, Options{})
	require.NoError(t, err)
	defer reopened.Close()
	_, ok := reopened.Store.Snapshot().Entry("plants")
	assert.True(t, ok, "Serve saves the checkpoint on exit")
}

func TestBuild_InvalidConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".taskline"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".taskline", "config.yaml"), []byte("default_path: notes.txt\n"), 0600))

	_, err := Build(root, Options{})
	assert.Error(t, err)
}

func TestBuild_MissingPlugin(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Writer.Plugin.Binary = "bin/missing-writer"
	require.NoError(t, config.Save(root, cfg))

	_, err := Build(root, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load writer plugin")
}
