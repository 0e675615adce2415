package application

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/events"
)

type writeCall struct {
	Op      string
	Line    string
	Lookup  string
	Path    string
	Heading string
}

// MockWriter records calls and answers from the configured fields.
type MockWriter struct {
	mu     sync.Mutex
	Calls  []writeCall
	Fail   bool
	// FailCalls rejects that many calls before answering normally.
	FailCalls int
	Err    error
	Result string
	// Gate, when set, blocks every call until a value is received.
	Gate chan struct{}

	active    int
	maxActive int
}

func (m *MockWriter) enter(c writeCall) (string, bool, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, c)
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	if m.Err != nil {
		return "", false, m.Err
	}
	if m.Fail {
		return "", false, nil
	}
	if m.FailCalls > 0 {
		m.FailCalls--
		return "", false, nil
	}
	if m.Result != "" {
		return m.Result, true, nil
	}
	return c.Line, true, nil
}

func (m *MockWriter) Create(_ context.Context, line, path, heading string) (string, bool, error) {
	return m.enter(writeCall{Op: "create", Line: line, Path: path, Heading: heading})
}

func (m *MockWriter) Edit(_ context.Context, newLine, lookup, path string) (string, bool, error) {
	return m.enter(writeCall{Op: "edit", Line: newLine, Lookup: lookup, Path: path})
}

func (m *MockWriter) Delete(_ context.Context, lookup, path string) (bool, error) {
	_, ok, err := m.enter(writeCall{Op: "delete", Lookup: lookup, Path: path})
	return ok, err
}

func (m *MockWriter) calls() []writeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]writeCall(nil), m.Calls...)
}

func (m *MockWriter) set(fn func(*MockWriter)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

// MockIndex serves a fixed snapshot, failing the first FailTimes calls.
type MockIndex struct {
	mu        sync.Mutex
	Entries   []codec.IndexEntry
	FailTimes int
	Calls     int
}

func (m *MockIndex) Snapshot(context.Context) ([]codec.IndexEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Calls <= m.FailTimes {
		return nil, errors.New("index unavailable")
	}
	return append([]codec.IndexEntry(nil), m.Entries...), nil
}

// MockDeadLetters keeps appended dead letters in memory.
type MockDeadLetters struct {
	mu      sync.Mutex
	Letters []events.DeadLetter
}

func (m *MockDeadLetters) Append(dl events.DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Letters = append(m.Letters, dl)
	return nil
}

// recorder collects published event types.
type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.EventType())
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}
