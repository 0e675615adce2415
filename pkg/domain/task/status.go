package task

import (
	"encoding/json"
	"fmt"
)

// Status is the checkbox state of a task line.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// markers maps each status to the character stored between the brackets of
// the list item checkbox.
var markers = map[Status]rune{
	StatusTodo:       ' ',
	StatusInProgress: '/',
	StatusDone:       'x',
	StatusCancelled:  '-',
}

// AllStatuses returns all valid task statuses.
func AllStatuses() []Status {
	return []Status{
		StatusTodo,
		StatusInProgress,
		StatusDone,
		StatusCancelled,
	}
}

// IsValid returns true if the status is a valid task status.
func (s Status) IsValid() bool {
	_, ok := markers[s]
	return ok
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Marker returns the checkbox character for the status. Unknown statuses
// render as todo.
func (s Status) Marker() rune {
	if m, ok := markers[s]; ok {
		return m
	}
	return markers[StatusTodo]
}

// Checkbox returns the full list item prefix, e.g. "- [x]".
func (s Status) Checkbox() string {
	return fmt.Sprintf("- [%c]", s.Marker())
}

// IsComplete returns true if no further work is expected.
func (s Status) IsComplete() bool {
	return s == StatusDone || s == StatusCancelled
}

// DisplayName returns a human-readable display name for the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// StatusFromMarker maps a checkbox character back to a status. Upper-case X
// is accepted as done; anything else unrecognized is todo.
func StatusFromMarker(r rune) Status {
	switch r {
	case '/':
		return StatusInProgress
	case 'x', 'X':
		return StatusDone
	case '-':
		return StatusCancelled
	default:
		return StatusTodo
	}
}

// ParseStatus parses a string into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}

// MarshalJSON implements json.Marshaler interface.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Accept empty string as todo for backward compatibility
	if str == "" {
		*s = StatusTodo
		return nil
	}

	status := Status(str)
	if !status.IsValid() {
		return fmt.Errorf("invalid task status: %s", str)
	}

	*s = status
	return nil
}
