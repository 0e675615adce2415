package task

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Priority is the importance of a task. The empty priority means the line
// carries no priority attribute.
type Priority string

const (
	PriorityNone    Priority = ""
	PriorityLowest  Priority = "lowest"
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
	PriorityHighest Priority = "highest"
)

// priorityOrder defines the ordering of priorities (higher order = higher priority)
var priorityOrder = map[Priority]int{
	PriorityNone:    0,
	PriorityLowest:  1,
	PriorityLow:     2,
	PriorityMedium:  3,
	PriorityHigh:    4,
	PriorityHighest: 5,
}

// AllPriorities returns all explicit priorities from lowest to highest.
func AllPriorities() []Priority {
	return []Priority{
		PriorityLowest,
		PriorityLow,
		PriorityMedium,
		PriorityHigh,
		PriorityHighest,
	}
}

// IsValid returns true if the priority is a valid task priority, including none.
func (p Priority) IsValid() bool {
	_, ok := priorityOrder[p]
	return ok
}

// IsSet returns true if the priority is not none.
func (p Priority) IsSet() bool {
	return p != PriorityNone
}

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// Order returns the numeric order of the priority (higher = more important).
func (p Priority) Order() int {
	return priorityOrder[p]
}

// Compare compares this priority to another.
// Returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Priority) Compare(other Priority) int {
	thisOrder := p.Order()
	otherOrder := other.Order()

	switch {
	case thisOrder < otherOrder:
		return -1
	case thisOrder > otherOrder:
		return 1
	default:
		return 0
	}
}

// IsHigherThan returns true if this priority is higher than the other.
func (p Priority) IsHigherThan(other Priority) bool {
	return p.Compare(other) > 0
}

// DisplayName returns a human-readable display name for the priority.
func (p Priority) DisplayName() string {
	switch p {
	case PriorityNone:
		return "None"
	case PriorityLowest:
		return "Lowest"
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityHighest:
		return "Highest"
	default:
		return string(p)
	}
}

// ParsePriority parses a string into a Priority. Empty input is none.
func ParsePriority(s string) (Priority, error) {
	priority := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !priority.IsValid() {
		return "", fmt.Errorf("invalid task priority: %s", s)
	}
	return priority, nil
}

// LenientPriority maps an attribute value to a priority, falling back to
// medium for anything unrecognized.
func LenientPriority(s string) Priority {
	p, err := ParsePriority(s)
	if err != nil || p == PriorityNone {
		return PriorityMedium
	}
	return p
}

// MarshalJSON implements json.Marshaler interface.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	priority, err := ParsePriority(str)
	if err != nil {
		return err
	}

	*p = priority
	return nil
}
