package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/felixgeelhaar/taskline/pkg/domain/events"
)

// jsonLog appends JSON values to a JSON Lines file.
type jsonLog struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

func (l *jsonLog) append(v any) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(l.path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", filepath.Base(l.path), cerr)
		}
	}()

	_, err = f.Write(append(data, '\n'))
	return err
}

// readJSONL decodes every line of the log, skipping lines that do not
// decode. A missing file yields nothing.
func readJSONL[T any](l *jsonLog) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := afero.ReadFile(l.fs, l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []T
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var v T
		if err := dec.Decode(&v); err != nil {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// DeadLetterStore keeps writes that exhausted their retries.
type DeadLetterStore struct {
	log jsonLog
}

// NewDeadLetterStore creates a dead letter store at path on fsys.
func NewDeadLetterStore(fsys afero.Fs, path string) *DeadLetterStore {
	return &DeadLetterStore{log: jsonLog{fs: fsys, path: path}}
}

// Append records one dead letter.
func (s *DeadLetterStore) Append(dl events.DeadLetter) error {
	return s.log.append(dl)
}

// ReadAll returns all dead letters in the order they were written.
func (s *DeadLetterStore) ReadAll() ([]events.DeadLetter, error) {
	return readJSONL[events.DeadLetter](&s.log)
}

// JournalRecord is one line of the sync journal.
type JournalRecord struct {
	events.Base
	Data json.RawMessage `json:"data"`
}

// Journal records published events for later inspection.
type Journal struct {
	log jsonLog
}

// NewJournal creates a journal at path on fsys.
func NewJournal(fsys afero.Fs, path string) *Journal {
	return &Journal{log: jsonLog{fs: fsys, path: path}}
}

// Handle appends event to the journal. It matches events.HandlerFunc.
func (j *Journal) Handle(_ context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	rec := JournalRecord{
		Base: events.Base{
			Type:      event.EventType(),
			Task:      event.TaskID(),
			Timestamp: event.OccurredAt(),
		},
		Data: data,
	}
	var id struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(data, &id) == nil {
		rec.ID = id.ID
	}
	return j.log.append(rec)
}

// Tail returns the last n records, oldest first. n <= 0 returns all.
func (j *Journal) Tail(n int) ([]JournalRecord, error) {
	all, err := readJSONL[JournalRecord](&j.log)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
