// Package watch notices document changes in a vault and reports them in
// debounced batches.
package watch

import (
	"sync"
	"time"
)

// Debouncer collects the values triggered until the window passes without
// a new trigger, then hands them to the callback as one batch in
// first-seen order. Repeated values are reported once.
type Debouncer[T comparable] struct {
	window   time.Duration
	callback func([]T)

	mu    sync.Mutex
	timer *time.Timer
	batch []T
	seen  map[T]bool
}

// NewDebouncer creates a debouncer with the given window duration.
func NewDebouncer[T comparable](window time.Duration, callback func([]T)) *Debouncer[T] {
	return &Debouncer[T]{
		window:   window,
		callback: callback,
		seen:     make(map[T]bool),
	}
}

// Trigger adds v to the pending batch and restarts the window.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seen[v] {
		d.seen[v] = true
		d.batch = append(d.batch, v)
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	batch := d.batch
	d.batch = nil
	clear(d.seen)
	d.mu.Unlock()

	if len(batch) > 0 {
		d.callback(batch)
	}
}

// Stop cancels the pending callback and drops the batch.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.batch = nil
	clear(d.seen)
}
