package codec

import (
	"strings"

	"github.com/felixgeelhaar/taskline/pkg/domain/task"
	"github.com/google/uuid"
)

// indexNamespace seeds the name-based ids derived from index locations.
var indexNamespace = uuid.MustParse("6f1c3a52-8a4e-4d55-9c1e-2b7d0e4f9a13")

// IndexEntry is one structured task snapshot yielded by an index provider.
// Text never includes the checkbox marker; Status is authoritative.
type IndexEntry struct {
	Status   task.Status  `json:"status"`
	Text     string       `json:"text"`
	Path     string       `json:"path"`
	ID       string       `json:"id"`
	Subtasks []IndexEntry `json:"subtasks,omitempty"`
}

// StableID derives a deterministic id from a document path and a
// document-relative identifier.
func StableID(path, identifier string) string {
	return uuid.NewSHA1(indexNamespace, []byte(path+"#"+identifier)).String()
}

// DecodeIndexEntry decodes an index snapshot in two passes: the marker-less
// body is decoded first (which leaves the status at its default), then the
// status is taken from the entry and the raw line is rebuilt by putting the
// right checkbox back in front of the body.
func DecodeIndexEntry(e IndexEntry) task.Task {
	opts := DecodeOptions{}
	if e.ID != "" {
		opts.FallbackID = StableID(e.Path, e.ID)
	}
	t := DecodeWith(e.Text, opts)

	t.Status = e.Status
	if !t.Status.IsValid() {
		t.Status = task.StatusTodo
	}
	body := strings.TrimSpace(e.Text)
	t.RawLine = t.Status.Checkbox()
	if body != "" {
		t.RawLine += " " + body
	}
	t.Path = e.Path
	t.Subtasks = nil

	for _, sub := range e.Subtasks {
		if sub.Path == "" {
			sub.Path = e.Path
		}
		child := DecodeIndexEntry(sub)
		t.Subtasks = append(t.Subtasks, child)
		t.RawLine += indentBlock(child.RawLine)
	}
	return t
}

// indentBlock prefixes every line of block with a newline and one tab.
func indentBlock(block string) string {
	var b strings.Builder
	for _, line := range strings.Split(block, "\n") {
		b.WriteString("\n\t")
		b.WriteString(line)
	}
	return b.String()
}
