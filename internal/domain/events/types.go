// Package events defines all event types used in ibridge.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Editor state events
	EventTypeWorkspaceChanged  EventType = "workspace_changed"
	EventTypeModelChanged      EventType = "model_changed"
	EventTypeModeChanged       EventType = "mode_changed"
	EventTypeApprovalResponded EventType = "approval_responded"

	// Query responses (snapshots requested by a client)
	EventTypeState     EventType = "state"
	EventTypeApprovals EventType = "approvals"

	// File events
	EventTypeFileChanged EventType = "file_changed"

	// Chat events
	EventTypeChatUpdate EventType = "chat_update"

	// Inbox events
	EventTypeMessage         EventType = "message"
	EventTypeInboxUpdated    EventType = "inbox_updated"
	EventTypeMessagesCleared EventType = "messages_cleared"
	EventTypeHistory         EventType = "history" // initial snapshot sent on subscribe

	// Command events (inbound frames echoed to observers)
	EventTypeMobileCommand EventType = "mobile_command"

	// Connection events
	EventTypeHeartbeat EventType = "heartbeat"

	// Response events
	EventTypeError EventType = "error"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)
}

// BaseEvent is the wire envelope for all events: {event, data, timestamp}.
type BaseEvent struct {
	EventType EventType   `json:"event"`
	Payload   interface{} `json:"data"`
	EventTime time.Time   `json:"timestamp"`
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}
