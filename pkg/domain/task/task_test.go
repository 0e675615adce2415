package task

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatus_MarkerRoundTrip(t *testing.T) {
	for _, s := range AllStatuses() {
		if got := StatusFromMarker(s.Marker()); got != s {
			t.Errorf("StatusFromMarker(%q) = %s, want %s", s.Marker(), got, s)
		}
	}
	if got := Status("bogus").Marker(); got != ' ' {
		t.Errorf("unknown status marker = %q, want space", got)
	}
}

func TestStatus_UnmarshalJSON(t *testing.T) {
	var s Status
	if err := json.Unmarshal([]byte(`""`), &s); err != nil || s != StatusTodo {
		t.Fatalf("empty status = %q, %v; want todo", s, err)
	}
	if err := json.Unmarshal([]byte(`"paused"`), &s); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestPriority_Ordering(t *testing.T) {
	all := append([]Priority{PriorityNone}, AllPriorities()...)
	for i := 1; i < len(all); i++ {
		if !all[i].IsHigherThan(all[i-1]) {
			t.Errorf("%s should be higher than %s", all[i], all[i-1])
		}
	}
}

func TestLenientPriority(t *testing.T) {
	tests := map[string]Priority{
		"high":     PriorityHigh,
		" HIGHEST": PriorityHighest,
		"lowest":   PriorityLowest,
		"urgent":   PriorityMedium,
		"":         PriorityMedium,
	}
	for in, want := range tests {
		if got := LenientPriority(in); got != want {
			t.Errorf("LenientPriority(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := Task{
		ID:       "p",
		Blocks:   []string{"a"},
		Tags:     []string{"x"},
		Subtasks: []Task{{ID: "c", Tags: []string{"y"}}},
	}
	c := orig.Clone()
	c.Blocks[0] = "changed"
	c.Tags[0] = "changed"
	c.Subtasks[0].Tags[0] = "changed"

	if orig.Blocks[0] != "a" || orig.Tags[0] != "x" || orig.Subtasks[0].Tags[0] != "y" {
		t.Errorf("clone shares memory with original: %+v", orig)
	}
}

func TestSameFields(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Task{ID: "1", Description: "x", DueDate: d, Blocks: nil, RawLine: "one"}
	b := Task{ID: "1", Description: "x", DueDate: d, Blocks: []string{}, RawLine: "two"}
	if !SameFields(a, b) {
		t.Error("expected tasks to match ignoring raw line and nil/empty slices")
	}
	b.Subtasks = []Task{{ID: "c"}}
	if SameFields(a, b) {
		t.Error("expected subtask difference to be detected")
	}
}

func TestWalk(t *testing.T) {
	root := Task{ID: "r", Subtasks: []Task{{ID: "a", Subtasks: []Task{{ID: "b"}}}, {ID: "c"}}}
	var ids []string
	root.Walk(func(t Task) { ids = append(ids, t.ID) })
	if got := len(ids); got != 4 || ids[0] != "r" || ids[2] != "b" {
		t.Errorf("Walk order = %v", ids)
	}
}
