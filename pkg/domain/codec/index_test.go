package codec

import (
	"testing"

	"github.com/felixgeelhaar/taskline/pkg/domain/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIndexEntry_TwoPass(t *testing.T) {
	entry := IndexEntry{
		Status: task.StatusDone,
		Text:   "Renew passport [id:: pp] [due:: 2024-09-01]",
		Path:   "Admin.md",
		ID:     "12",
	}

	got := DecodeIndexEntry(entry)

	assert.Equal(t, "pp", got.ID)
	assert.Equal(t, task.StatusDone, got.Status, "status comes from the index, not the body")
	assert.Equal(t, "Renew passport", got.Description)
	assert.Equal(t, "- [x] Renew passport [id:: pp] [due:: 2024-09-01]", got.RawLine)
	assert.Equal(t, "Admin.md", got.Path)
	assert.True(t, got.DueDate.Equal(day(2024, 9, 1)))
}

func TestDecodeIndexEntry_StableIdentity(t *testing.T) {
	entry := IndexEntry{Status: task.StatusTodo, Text: "No id yet", Path: "Inbox.md", ID: "3"}

	first := DecodeIndexEntry(entry)
	second := DecodeIndexEntry(entry)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, StableID("Inbox.md", "3"), first.ID)

	moved := DecodeIndexEntry(IndexEntry{Status: task.StatusTodo, Text: "No id yet", Path: "Inbox.md", ID: "4"})
	assert.NotEqual(t, first.ID, moved.ID)
}

func TestDecodeIndexEntry_Subtasks(t *testing.T) {
	entry := IndexEntry{
		Status: task.StatusInProgress,
		Text:   "Move house [id:: mv]",
		Path:   "Life.md",
		ID:     "1",
		Subtasks: []IndexEntry{
			{Status: task.StatusDone, Text: "Book van [id:: van]", ID: "2"},
			{Status: task.StatusCancelled, Text: "Sell sofa [id:: sofa]", ID: "3", Path: "Other.md"},
		},
	}

	got := DecodeIndexEntry(entry)
	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, task.StatusDone, got.Subtasks[0].Status)
	assert.Equal(t, "Life.md", got.Subtasks[0].Path)
	assert.Equal(t, "Other.md", got.Subtasks[1].Path)
	assert.Equal(t,
		"- [/] Move house [id:: mv]\n\t- [x] Book van [id:: van]\n\t- [-] Sell sofa [id:: sofa]",
		got.RawLine)
}

func TestDecodeIndexEntry_InvalidStatus(t *testing.T) {
	got := DecodeIndexEntry(IndexEntry{Status: "weird", Text: "x [id:: 1]"})
	assert.Equal(t, task.StatusTodo, got.Status)
	assert.Equal(t, "- [ ] x [id:: 1]", got.RawLine)
}
