package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskline/internal/infrastructure/config"
	"github.com/felixgeelhaar/taskline/pkg/application"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-C", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, out)
	return out
}

func readTasks(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "Tasks.md"))
	require.NoError(t, err)
	return string(data)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "init", "--default-path", "Inbox.md", "--heading", "## Todo")
	assert.Contains(t, out, "Initialized taskline")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Inbox.md", cfg.DefaultPath)
	assert.Equal(t, "## Todo", cfg.DefaultHeading)

	_, err = run(t, dir, "init")
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
}

func TestTaskLifecycle(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "add", "Buy", "milk", "#errand", "--id", "milk", "--due", "2024-05-01", "--priority", "high")
	assert.Contains(t, out, "Added milk to Tasks.md")
	doc := readTasks(t, dir)
	assert.Contains(t, doc, "## Inbox\n- [ ] Buy milk #errand")
	assert.Contains(t, doc, "[id:: milk]")
	assert.Contains(t, doc, "2024-05-01")

	out = mustRun(t, dir, "list")
	assert.Contains(t, out, "milk")
	assert.Contains(t, out, "Buy milk")

	out = mustRun(t, dir, "tags")
	assert.Contains(t, out, "#errand")

	out = mustRun(t, dir, "done", "milk")
	assert.Contains(t, out, "Task milk is now Done")
	assert.Contains(t, readTasks(t, dir), "- [x] Buy milk")

	out = mustRun(t, dir, "list", "--status", "todo")
	assert.NotContains(t, out, "Buy milk")

	out = mustRun(t, dir, "edit", "milk", "Buy oat milk")
	assert.Contains(t, out, "Updated milk")
	assert.Contains(t, readTasks(t, dir), "- [x] Buy oat milk")

	out = mustRun(t, dir, "status")
	assert.Contains(t, out, "0 pending, 0 failed")

	mustRun(t, dir, "delete", "milk")
	assert.NotContains(t, readTasks(t, dir), "milk")

	out = mustRun(t, dir, "log", "-n", "0")
	assert.Contains(t, out, "sync.succeeded")

	out = mustRun(t, dir, "deadletters")
	assert.Contains(t, out, "No dead letters.")
}

func TestPicksUpHandEditedDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Tasks.md"),
		[]byte("# Home\n- [ ] Water plants [id:: plants]\n\t- [ ] Fern\n"), 0600))

	out := mustRun(t, dir, "list")
	assert.Contains(t, out, "Water plants")
	assert.Contains(t, out, "Fern")

	mustRun(t, dir, "start", "plants")
	doc := readTasks(t, dir)
	assert.Contains(t, doc, "# Home\n- [/] Water plants [id:: plants]\n\t- [ ] Fern")
	assert.Equal(t, 1, strings.Count(doc, "Water plants"))
}

func TestUnknownTask(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "done", "nope")
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.ErrorIs(t, err, application.ErrTaskNotFound)
}

func TestInvalidFlags(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "add", "x", "--due", "tomorrow")
	assert.ErrorContains(t, err, "--due")

	_, err = run(t, dir, "add", "x", "--priority", "urgent")
	assert.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "Tasks.md"))
	assert.True(t, os.IsNotExist(err), "nothing is written when flags are invalid")
}
