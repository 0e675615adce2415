package codec

import (
	"strings"

	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// Merge re-encodes newTask on top of originalRawLine. Tracked attributes
// always take the new value (a cleared field disappears), the id falls back
// to the original one when newTask has none, and attributes the codec does
// not know keep their original value and relative order after the tracked
// ones.
func Merge(newTask task.Task, originalRawLine string) string {
	origHead, _ := splitBlock(originalRawLine)
	original := ParseAttributes(origHead)

	ideal := Encode(newTask)
	idealHead, idealRest, _ := strings.Cut(ideal, "\n")
	updated := ParseAttributes(idealHead)

	merged := make(map[string]string, len(updated)+1)
	for _, a := range updated {
		merged[a.Key] = a.Value
	}
	if newTask.ID == "" {
		if v, ok := lookup(original, KeyID); ok {
			merged[KeyID] = v
		}
	}

	prefix := idealHead
	if idx := firstAttributeIndex(idealHead); idx >= 0 {
		prefix = idealHead[:idx]
	}
	prefix = strings.TrimRight(prefix, " \t")
	if prefix == "" {
		prefix = checkboxOf(origHead)
	}

	parts := []string{prefix}
	for _, key := range PreferredOrder {
		if v, ok := merged[key]; ok {
			parts = append(parts, Attribute{Key: key, Value: v}.String())
		}
	}
	seen := make(map[string]bool)
	for _, a := range original {
		if IsKnownKey(a.Key) || seen[a.Key] {
			continue
		}
		seen[a.Key] = true
		parts = append(parts, a.String())
	}

	line := strings.Join(parts, " ")
	if idealRest != "" {
		line += "\n" + idealRest
	}
	return line
}

// checkboxOf returns the checkbox marker of line, defaulting to todo.
func checkboxOf(line string) string {
	if m := statusPattern.FindString(line); m != "" {
		return strings.TrimSpace(m)
	}
	return task.StatusTodo.Checkbox()
}
