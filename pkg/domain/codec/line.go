// Package codec converts task records to and from annotated Markdown
// checklist lines.
//
// A line looks like
//
//	- [x] Buy milk #errand [id:: 42] [priority:: high] [due:: 2024-10-25]
//
// Subtasks follow on the next lines, indented by one tab per level.
package codec

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/felixgeelhaar/taskline/pkg/domain/task"
	"github.com/google/uuid"
)

var (
	// statusPattern matches the list item checkbox at the start of a line.
	statusPattern = regexp.MustCompile(`^\s*[-*+] \[(.)\]`)
	tagPattern    = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_/-]+)`)
)

// Encode renders a task, and its subtasks, as checklist text.
func Encode(t task.Task) string {
	var b strings.Builder
	b.WriteString(encodeLine(t))
	for _, sub := range t.Subtasks {
		b.WriteString(indentBlock(Encode(sub)))
	}
	return b.String()
}

func encodeLine(t task.Task) string {
	parts := []string{t.Status.Checkbox()}
	if d := strings.TrimSpace(t.Description); d != "" {
		parts = append(parts, d)
	}
	for _, a := range attributesOf(t) {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, " ")
}

// attributesOf returns the non-empty tracked attributes of t in preferred
// order.
func attributesOf(t task.Task) []Attribute {
	var attrs []Attribute
	add := func(key, value string) {
		if value != "" {
			attrs = append(attrs, Attribute{Key: key, Value: value})
		}
	}
	add(KeyID, t.ID)
	add(KeyDependsOn, strings.Join(t.Blocks, " "))
	add(KeyPriority, t.Priority.String())
	add(KeyRepeat, t.Recurs)
	add(KeyCreated, FormatDate(t.CreatedDate))
	add(KeyStart, FormatDate(t.StartDate))
	add(KeyScheduled, FormatDate(t.ScheduledDate))
	add(KeyDue, FormatDate(t.DueDate))
	add(KeyCompletion, FormatDate(t.DoneDate))
	return attrs
}

// DecodeOptions tunes Decode.
type DecodeOptions struct {
	// FallbackID is used when the line carries no id attribute. When empty a
	// random id is synthesized, which makes identity unstable across parses.
	FallbackID string
}

// Decode parses checklist text into a task. It never fails: missing or
// malformed attributes fall back to their defaults.
func Decode(text string) task.Task {
	return DecodeWith(text, DecodeOptions{})
}

// DecodeWith is Decode with explicit options.
func DecodeWith(text string, opts DecodeOptions) task.Task {
	head, children := splitBlock(text)
	t := decodeLine(head, opts)
	t.RawLine = text
	for _, child := range children {
		t.Subtasks = append(t.Subtasks, DecodeWith(child, DecodeOptions{}))
	}
	return t
}

func decodeLine(line string, opts DecodeOptions) task.Task {
	t := task.Task{Status: task.StatusTodo}

	body := line
	if m := statusPattern.FindStringSubmatchIndex(line); m != nil {
		t.Status = task.StatusFromMarker([]rune(line[m[2]:m[3]])[0])
		body = line[m[1]:]
	}

	attrs := ParseAttributes(body)
	t.Description = strings.TrimSpace(stripAttributes(body))
	t.Tags = ExtractTags(t.Description)

	if v, ok := lookup(attrs, KeyID); ok && strings.TrimSpace(v) != "" {
		t.ID = strings.TrimSpace(v)
	} else if opts.FallbackID != "" {
		t.ID = opts.FallbackID
	} else {
		t.ID = NewID()
		slog.Debug("synthesized id for line without id attribute",
			"task_id", t.ID,
			"line", line)
	}

	if v, ok := lookup(attrs, KeyPriority); ok {
		t.Priority = task.LenientPriority(v)
	}
	if v, ok := lookup(attrs, KeyDependsOn); ok {
		t.Blocks = splitIDs(v)
	}
	if v, ok := lookup(attrs, KeyRepeat); ok {
		t.Recurs = strings.TrimSpace(v)
	}
	t.CreatedDate = dateAttr(attrs, KeyCreated)
	t.StartDate = dateAttr(attrs, KeyStart)
	t.ScheduledDate = dateAttr(attrs, KeyScheduled)
	t.DueDate = dateAttr(attrs, KeyDue)
	t.DoneDate = dateAttr(attrs, KeyCompletion)
	return t
}

func dateAttr(attrs []Attribute, key string) time.Time {
	v, ok := lookup(attrs, key)
	if !ok {
		return time.Time{}
	}
	d, _ := ParseDate(v)
	return d
}

func splitIDs(v string) []string {
	ids := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// ExtractTags returns the distinct #tag words of a description, without the
// hash, in order of first appearance.
func ExtractTags(description string) []string {
	matches := tagPattern.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var tags []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			tags = append(tags, m[1])
		}
	}
	return tags
}

// splitBlock separates the first line from its indented child blocks. Each
// child block has one level of indentation removed. Blank and unindented
// trailing lines are ignored.
func splitBlock(text string) (string, []string) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	head := strings.TrimRight(lines[0], "\r")

	var children []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			children = append(children, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, raw := range lines[1:] {
		line := strings.TrimRight(raw, "\r")
		inner, ok := dedent(line)
		if !ok || strings.TrimSpace(inner) == "" {
			continue
		}
		if !strings.HasPrefix(inner, "\t") && !strings.HasPrefix(inner, "    ") {
			flush()
		}
		current = append(current, inner)
	}
	flush()
	return head, children
}

// dedent removes one indentation level (a tab or four spaces).
func dedent(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "\t"):
		return line[1:], true
	case strings.HasPrefix(line, "    "):
		return line[4:], true
	default:
		return line, false
	}
}

// NewID returns a fresh random task id.
func NewID() string {
	return uuid.NewString()
}
