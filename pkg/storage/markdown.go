package storage

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// checklistPattern matches "- [c] body" list items with any indentation.
var checklistPattern = regexp.MustCompile(`^(\s*)[-*+] \[(.)\](?: (.*))?$`)

var headingPattern = regexp.MustCompile(`^#{1,6}(\s|$)`)

// splitLines splits a document into lines without their terminators. A
// trailing newline does not produce an extra empty line.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// indentWidth measures leading whitespace, counting a tab as four columns.
func indentWidth(prefix string) int {
	w := 0
	for _, r := range prefix {
		if r == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// parseDocument returns the checklist items of one document as an index
// tree. Identifiers are 1-based line numbers; an item is the child of the
// closest preceding item with a smaller indentation.
func parseDocument(path, content string) []codec.IndexEntry {
	type node struct {
		indent   int
		entry    codec.IndexEntry
		children []*node
	}

	var roots []*node
	var stack []*node

	for i, line := range splitLines(content) {
		m := checklistPattern.FindStringSubmatch(line)
		if m == nil {
			// Unindented prose ends any nesting.
			if strings.TrimSpace(line) != "" && leadingWhitespace(line) == "" {
				stack = stack[:0]
			}
			continue
		}

		n := &node{
			indent: indentWidth(m[1]),
			entry: codec.IndexEntry{
				Status: task.StatusFromMarker([]rune(m[2])[0]),
				Text:   strings.TrimSpace(m[3]),
				Path:   path,
				ID:     strconv.Itoa(i + 1),
			},
		}

		for len(stack) > 0 && stack[len(stack)-1].indent >= n.indent {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
		}
		stack = append(stack, n)
	}

	var build func(n *node) codec.IndexEntry
	build = func(n *node) codec.IndexEntry {
		e := n.entry
		for _, c := range n.children {
			e.Subtasks = append(e.Subtasks, build(c))
		}
		return e
	}

	out := make([]codec.IndexEntry, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}

// findBlock returns the index of the first run of lines matching lookup
// line by line after trimming, or -1.
func findBlock(lines []string, lookup []string) int {
	if len(lookup) == 0 {
		return -1
	}
	for i := 0; i+len(lookup) <= len(lines); i++ {
		match := true
		for k, want := range lookup {
			if strings.TrimSpace(lines[i+k]) != strings.TrimSpace(want) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// reindent prefixes every line of block with the indentation of the line
// it replaces.
func reindent(block []string, prefix string) []string {
	out := make([]string, len(block))
	for i, l := range block {
		out[i] = prefix + l
	}
	return out
}

func leadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// sectionEnd returns the index after the last non-blank line of the
// section that starts at heading.
func sectionEnd(lines []string, heading int) int {
	end := heading + 1
	for i := heading + 1; i < len(lines); i++ {
		if headingPattern.MatchString(strings.TrimSpace(lines[i])) {
			break
		}
		if strings.TrimSpace(lines[i]) != "" {
			end = i + 1
		}
	}
	return end
}

func findHeading(lines []string, heading string) int {
	want := strings.TrimSpace(heading)
	for i, l := range lines {
		if strings.TrimSpace(l) == want {
			return i
		}
	}
	return -1
}
