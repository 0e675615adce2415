package codec

import (
	"regexp"
	"slices"
)

// Attribute keys produced by Encode, in the order they are written.
const (
	KeyID         = "id"
	KeyDependsOn  = "dependsOn"
	KeyPriority   = "priority"
	KeyRepeat     = "repeat"
	KeyCreated    = "created"
	KeyStart      = "start"
	KeyScheduled  = "scheduled"
	KeyDue        = "due"
	KeyCompletion = "completion"
)

// PreferredOrder is the fixed attribute order of an encoded line.
var PreferredOrder = []string{
	KeyID,
	KeyDependsOn,
	KeyPriority,
	KeyRepeat,
	KeyCreated,
	KeyStart,
	KeyScheduled,
	KeyDue,
	KeyCompletion,
}

// attributePattern matches one "[key:: value]" block together with the
// horizontal whitespace in front of it.
var attributePattern = regexp.MustCompile(`[ \t]*\[([^\[\]:\s]+)::([^\[\]]*)\]`)

// Attribute is one "[key:: value]" block.
type Attribute struct {
	Key   string
	Value string
}

// String renders the attribute block.
func (a Attribute) String() string {
	return "[" + a.Key + ":: " + a.Value + "]"
}

// IsKnownKey reports whether key is produced by Encode.
func IsKnownKey(key string) bool {
	return slices.Contains(PreferredOrder, key)
}

// ParseAttributes extracts every attribute block from a single line, in
// order of appearance. One separating space after "::" is dropped; the rest
// of the value is kept verbatim.
func ParseAttributes(line string) []Attribute {
	matches := attributePattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil
	}
	attrs := make([]Attribute, 0, len(matches))
	for _, m := range matches {
		value := m[2]
		if len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
		attrs = append(attrs, Attribute{Key: m[1], Value: value})
	}
	return attrs
}

// lookup returns the first attribute with the given key.
func lookup(attrs []Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// stripAttributes removes every attribute block from line.
func stripAttributes(line string) string {
	return attributePattern.ReplaceAllString(line, "")
}

// firstAttributeIndex returns the byte offset of the first attribute block
// (including its leading whitespace), or -1.
func firstAttributeIndex(line string) int {
	loc := attributePattern.FindStringIndex(line)
	if loc == nil {
		return -1
	}
	return loc[0]
}
