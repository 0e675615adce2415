package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/events"
	"github.com/felixgeelhaar/taskline/pkg/domain/overlay"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// RefreshService pulls full snapshots from the index and merges them into
// the overlay.
type RefreshService struct {
	index      IndexProvider
	store      *overlay.Store
	publisher  Publisher
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewRefreshService creates a RefreshService. publisher and logger may be
// nil.
func NewRefreshService(index IndexProvider, store *overlay.Store, publisher Publisher, logger *slog.Logger) *RefreshService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshService{
		index:      index,
		store:      store,
		publisher:  publisher,
		logger:     logger,
		retryDelay: 200 * time.Millisecond,
	}
}

// SetRetryDelay changes the initial backoff between fetch attempts.
func (s *RefreshService) SetRetryDelay(d time.Duration) {
	s.retryDelay = d
}

// Refresh fetches the index and applies it as a remote update. It returns
// the number of top-level records fetched.
func (s *RefreshService) Refresh(ctx context.Context) (int, error) {
	r := retry.New[[]codec.IndexEntry](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  s.retryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})

	entries, err := r.Do(ctx, func(ctx context.Context) ([]codec.IndexEntry, error) {
		return s.index.Snapshot(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("fetch index: %w", err)
	}

	tasks := make([]task.Task, 0, len(entries))
	for _, e := range entries {
		tasks = append(tasks, codec.DecodeIndexEntry(e))
	}
	snap := s.store.Apply(overlay.RemoteUpdate{Tasks: tasks})

	s.logger.Debug("index refreshed", "records", len(tasks), "entries", len(snap.Entries))
	if err := s.publisher.Publish(ctx, events.NewIndexRefreshed(len(tasks), time.Now())); err != nil {
		s.logger.Warn("event handler failed", "event_type", events.TypeIndexRefreshed, "error", err)
	}
	return len(tasks), nil
}

// Run refreshes once, then on every tick of interval and every signal on
// trigger, until ctx is cancelled. Failed refreshes are logged and retried
// on the next tick. A zero interval disables the ticker.
func (s *RefreshService) Run(ctx context.Context, interval time.Duration, trigger <-chan struct{}) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	s.refreshLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			s.refreshLogged(ctx)
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
			s.refreshLogged(ctx)
		}
	}
}

func (s *RefreshService) refreshLogged(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("refresh failed", "error", err)
	}
}
