// Package hub implements the central event hub for ibridge.
package hub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

// Hub fans events out to all subscribers. Delivery is best-effort: a
// subscriber that errors is dropped, and a full broadcast queue sheds the
// event rather than blocking producers.
type Hub struct {
	subscribers map[string]ports.Subscriber

	broadcast  chan events.Event
	register   chan ports.Subscriber
	unregister chan string

	mu      sync.RWMutex
	done    chan struct{}
	running bool
}

// New creates a new Hub.
func New() *Hub {
	return &Hub{
		subscribers: make(map[string]ports.Subscriber),
		broadcast:   make(chan events.Event, 256),
		register:    make(chan ports.Subscriber),
		unregister:  make(chan string),
		done:        make(chan struct{}),
	}
}

// Start begins the hub's main loop. Starting a running hub is a no-op,
// and a stopped hub can be started again.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	log.Debug().Msg("event hub started")

	go h.run(done)
	return nil
}

// Stop gracefully stops the hub and closes all subscribers.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	done := h.done
	h.mu.Unlock()

	close(done)

	h.mu.Lock()
	for _, sub := range h.subscribers {
		_ = sub.Close()
	}
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	log.Debug().Msg("event hub stopped")
	return nil
}

// run is the main event loop. done is the stop channel captured at
// Start so a restart never observes the previous generation's channel.
func (h *Hub) run(done chan struct{}) {
	for {
		select {
		case <-done:
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.ID()] = sub
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")

		case id := <-h.unregister:
			h.mu.Lock()
			if sub, ok := h.subscribers[id]; ok {
				_ = sub.Close()
				delete(h.subscribers, id)
			}
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", id).Msg("subscriber unregistered")

		case event := <-h.broadcast:
			h.fanOut(event)
		}
	}
}

// fanOut delivers one event to every live subscriber. A closed or failing
// subscriber is skipped this round and queued for removal.
func (h *Hub) fanOut(event events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subscribers {
		select {
		case <-sub.Done():
			h.queueUnregister(id)
			continue
		default:
		}

		if err := sub.Send(event); err != nil {
			log.Warn().
				Str("subscriber_id", id).
				Err(err).
				Msg("failed to send event to subscriber")
			h.queueUnregister(id)
		}
	}
}

// queueUnregister schedules a subscriber removal without blocking the
// fan-out path.
func (h *Hub) queueUnregister(id string) {
	go func() {
		select {
		case h.unregister <- id:
		case <-h.doneCh():
		}
	}()
}

func (h *Hub) doneCh() chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.done
}

// Publish sends an event to all subscribers.
func (h *Hub) Publish(event events.Event) {
	select {
	case h.broadcast <- event:
		log.Trace().
			Str("event_type", string(event.Type())).
			Msg("event published")
	default:
		log.Warn().
			Str("event_type", string(event.Type())).
			Msg("event dropped: broadcast channel full")
	}
}

// Subscribe adds a new subscriber.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	select {
	case h.register <- sub:
	case <-h.doneCh():
	}
}

// Unsubscribe removes a subscriber by ID.
func (h *Hub) Unsubscribe(id string) {
	select {
	case h.unregister <- id:
	case <-h.doneCh():
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsRunning returns true if the hub is running.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

var _ ports.EventHub = (*Hub)(nil)
