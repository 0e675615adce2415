package events

import "time"

// DeadLetter records a write that ran out of retries.
type DeadLetter struct {
	Timestamp time.Time `json:"timestamp"`
	TaskID    string    `json:"task_id"`
	Action    string    `json:"action"`
	Path      string    `json:"path"`
	Line      string    `json:"line"`
	Lookup    string    `json:"lookup,omitempty"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"`
}
