package websocket

import (
	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

// ClientSubscriber adapts a WebSocket client to the EventHub subscriber
// interface. Kind filtering is layered on top by the handler, which wraps
// this in a hub.FilteredSubscriber before subscribing.
type ClientSubscriber struct {
	client *Client
}

// NewClientSubscriber creates a subscriber from a WebSocket client.
func NewClientSubscriber(client *Client) *ClientSubscriber {
	return &ClientSubscriber{client: client}
}

// ID returns the subscriber's unique identifier.
func (s *ClientSubscriber) ID() string {
	return s.client.ID()
}

// Send queues the event on the client.
func (s *ClientSubscriber) Send(event events.Event) error {
	return s.client.SendEvent(event)
}

// Close closes the subscriber.
func (s *ClientSubscriber) Close() error {
	s.client.Close()
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *ClientSubscriber) Done() <-chan struct{} {
	return s.client.Done()
}

var _ ports.Subscriber = (*ClientSubscriber)(nil)
