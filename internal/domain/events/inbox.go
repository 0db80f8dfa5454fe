package events

import "time"

// MessagePayload represents a single inbox message.
type MessagePayload struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessageEvent creates a new message event.
func NewMessageEvent(msg MessagePayload) *BaseEvent {
	return NewEvent(EventTypeMessage, msg)
}

// InboxUpdatedPayload represents the payload for inbox_updated events.
type InboxUpdatedPayload struct {
	Count int `json:"count"`
}

// NewInboxUpdatedEvent creates a new inbox_updated event.
func NewInboxUpdatedEvent(count int) *BaseEvent {
	return NewEvent(EventTypeInboxUpdated, InboxUpdatedPayload{Count: count})
}

// NewMessagesClearedEvent creates a new messages_cleared event.
func NewMessagesClearedEvent() *BaseEvent {
	return NewEvent(EventTypeMessagesCleared, struct{}{})
}

// HistoryPayload represents the payload for history events, the initial
// snapshot delivered to a subscriber right after it connects.
type HistoryPayload struct {
	Messages []MessagePayload `json:"messages"`
}

// NewHistoryEvent creates a new history event.
func NewHistoryEvent(messages []MessagePayload) *BaseEvent {
	if messages == nil {
		messages = []MessagePayload{}
	}
	return NewEvent(EventTypeHistory, HistoryPayload{Messages: messages})
}
