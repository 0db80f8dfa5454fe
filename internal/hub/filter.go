package hub

import (
	"sync"

	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

// FilteredSubscriber wraps a subscriber and filters events by type.
// With no filter set, all events are forwarded.
type FilteredSubscriber struct {
	inner ports.Subscriber
	kinds map[events.EventType]bool
	mu    sync.RWMutex
}

// NewFilteredSubscriber creates a filtered subscriber wrapping inner.
func NewFilteredSubscriber(inner ports.Subscriber) *FilteredSubscriber {
	return &FilteredSubscriber{
		inner: inner,
		kinds: make(map[events.EventType]bool),
	}
}

// ID returns the subscriber's unique identifier.
func (f *FilteredSubscriber) ID() string {
	return f.inner.ID()
}

// Send forwards the event if it passes the filter. Filtered-out events
// are dropped silently.
func (f *FilteredSubscriber) Send(event events.Event) error {
	if !f.shouldForward(event) {
		return nil
	}
	return f.inner.Send(event)
}

// Close closes the subscriber.
func (f *FilteredSubscriber) Close() error {
	return f.inner.Close()
}

// Done returns a channel that's closed when the subscriber is done.
func (f *FilteredSubscriber) Done() <-chan struct{} {
	return f.inner.Done()
}

// SubscribeKind adds an event type to the filter.
func (f *FilteredSubscriber) SubscribeKind(kind events.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds[kind] = true
}

// UnsubscribeKind removes an event type from the filter.
func (f *FilteredSubscriber) UnsubscribeKind(kind events.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.kinds, kind)
}

// SubscribeAll clears the filter, forwarding every event.
func (f *FilteredSubscriber) SubscribeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = make(map[events.EventType]bool)
}

// IsFiltering returns true when a type filter is active.
func (f *FilteredSubscriber) IsFiltering() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.kinds) > 0
}

func (f *FilteredSubscriber) shouldForward(event events.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.kinds) == 0 {
		return true
	}
	// Errors always reach the client regardless of the filter.
	if event.Type() == events.EventTypeError {
		return true
	}
	return f.kinds[event.Type()]
}

var _ ports.Subscriber = (*FilteredSubscriber)(nil)
