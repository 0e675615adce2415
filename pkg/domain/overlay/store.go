package overlay

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Store owns the current overlay snapshot. Writes are serialized and each
// one publishes a new immutable Snapshot; reads never block.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	clock   func() time.Time
	lastNow time.Time
	logger  *slog.Logger

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:  time.Now,
		logger: slog.Default(),
		subs:   make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&Snapshot{Entries: []Entry{}})
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Apply runs op through Reduce and publishes the result.
func (s *Store) Apply(op Op) Snapshot {
	s.mu.Lock()
	prev := s.current.Load()
	next := &Snapshot{
		Version: prev.Version + 1,
		Entries: Reduce(prev.Entries, op, s.now()),
	}
	s.current.Store(next)
	s.mu.Unlock()

	s.logger.Debug("overlay updated",
		"op", Name(op),
		"version", next.Version,
		"entries", len(next.Entries))
	s.notify()
	return *next
}

// Restore replaces the entries wholesale, e.g. from a checkpoint.
func (s *Store) Restore(entries []Entry) Snapshot {
	s.mu.Lock()
	prev := s.current.Load()
	next := &Snapshot{Version: prev.Version + 1, Entries: slices.Clone(entries)}
	if next.Entries == nil {
		next.Entries = []Entry{}
	}
	for _, e := range entries {
		if e.Meta.LastUpdated.After(s.lastNow) {
			s.lastNow = e.Meta.LastUpdated
		}
	}
	s.current.Store(next)
	s.mu.Unlock()

	s.notify()
	return *next
}

// Subscribe returns a channel that receives a signal after every change.
// Signals coalesce, so a slow reader sees at most one pending signal. The
// returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// now returns a timestamp strictly after the previous one, so LastUpdated
// identifies a single local change. Caller holds mu.
func (s *Store) now() time.Time {
	t := s.clock()
	if !t.After(s.lastNow) {
		t = s.lastNow.Add(time.Nanosecond)
	}
	s.lastNow = t
	return t
}
