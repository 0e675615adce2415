package events

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc handles one event.
type HandlerFunc func(ctx context.Context, event Event) error

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Dispatcher fans events out to the handlers registered for their type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	// ContinueOnError runs the remaining handlers after one fails and
	// returns the collected errors.
	ContinueOnError bool
}

type namedHandler struct {
	name    string
	handler HandlerFunc
}

// NewDispatcher creates a Dispatcher without handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]namedHandler)}
}

// On registers handler for the given event types. Use Wildcard for all.
func (d *Dispatcher) On(name string, handler HandlerFunc, eventTypes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, et := range eventTypes {
		d.handlers[et] = append(d.handlers[et], namedHandler{name: name, handler: handler})
	}
}

// Publish hands event to its handlers in registration order, followed by
// the wildcard handlers.
func (d *Dispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]namedHandler(nil), d.handlers[event.EventType()]...)
	handlers = append(handlers, d.handlers[Wildcard]...)
	continueOnError := d.ContinueOnError
	d.mu.RUnlock()

	var errs []error
	for _, nh := range handlers {
		if err := nh.handler(ctx, event); err != nil {
			err = fmt.Errorf("handler %s failed for event %s: %w", nh.name, event.EventType(), err)
			if !continueOnError {
				return err
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &DispatchError{Errors: errs}
	}
	return nil
}

// HandlerCount returns how many handlers would receive an event of the
// given type.
func (d *Dispatcher) HandlerCount(eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := len(d.handlers[eventType])
	if eventType != Wildcard {
		n += len(d.handlers[Wildcard])
	}
	return n
}

// DispatchError collects handler errors when ContinueOnError is set.
type DispatchError struct {
	Errors []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple dispatch errors (%d)", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *DispatchError) Unwrap() []error {
	return e.Errors
}
