// Package testutil provides shared test utilities and mocks for ibridge tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

// MockSubscriber implements ports.Subscriber for testing.
type MockSubscriber struct {
	id       string
	events   []events.Event
	mu       sync.Mutex
	closed   bool
	sendErr  error
	sendFunc func(events.Event) error
	done     chan struct{}
}

// NewMockSubscriber creates a new mock subscriber.
func NewMockSubscriber(id string) *MockSubscriber {
	return &MockSubscriber{
		id:     id,
		events: make([]events.Event, 0),
		done:   make(chan struct{}),
	}
}

// ID returns the subscriber ID.
func (m *MockSubscriber) ID() string {
	return m.id
}

// Send records the event and returns any configured error.
func (m *MockSubscriber) Send(e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendFunc != nil {
		return m.sendFunc(e)
	}

	if m.sendErr != nil {
		return m.sendErr
	}

	m.events = append(m.events, e)
	return nil
}

// Close marks the subscriber as closed.
func (m *MockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (m *MockSubscriber) Done() <-chan struct{} {
	return m.done
}

// Events returns all received events.
func (m *MockSubscriber) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.events))
	copy(result, m.events)
	return result
}

// EventCount returns the number of received events.
func (m *MockSubscriber) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// IsClosed returns whether the subscriber was closed.
func (m *MockSubscriber) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetSendError configures an error to return on Send.
func (m *MockSubscriber) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetSendFunc sets a custom function for Send behavior.
func (m *MockSubscriber) SetSendFunc(fn func(events.Event) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFunc = fn
}

// Ensure MockSubscriber implements ports.Subscriber.
var _ ports.Subscriber = (*MockSubscriber)(nil)

// MockEventHub implements ports.EventHub for testing.
type MockEventHub struct {
	events      []events.Event
	subscribers []ports.Subscriber
	mu          sync.Mutex
	started     bool
	stopped     bool
}

// NewMockEventHub creates a new mock event hub.
func NewMockEventHub() *MockEventHub {
	return &MockEventHub{
		events:      make([]events.Event, 0),
		subscribers: make([]ports.Subscriber, 0),
	}
}

// Start marks the hub as started.
func (m *MockEventHub) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

// Stop marks the hub as stopped.
func (m *MockEventHub) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// Publish records the event.
func (m *MockEventHub) Publish(e events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Subscribe records the subscriber.
func (m *MockEventHub) Subscribe(sub ports.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, sub)
}

// Unsubscribe removes a subscriber by ID.
func (m *MockEventHub) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub.ID() == id {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// Subscribers returns the registered subscribers, in registration order.
func (m *MockEventHub) Subscribers() []ports.Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ports.Subscriber, len(m.subscribers))
	copy(result, m.subscribers)
	return result
}

// SubscriberCount returns the number of subscribers.
func (m *MockEventHub) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// IsRunning returns true if the hub was started and not stopped.
func (m *MockEventHub) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started && !m.stopped
}

// PublishedEvents returns all published events.
func (m *MockEventHub) PublishedEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.events))
	copy(result, m.events)
	return result
}

// EventsOfType returns the published events of the given type, in order.
func (m *MockEventHub) EventsOfType(typ events.EventType) []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []events.Event
	for _, e := range m.events {
		if e.Type() == typ {
			result = append(result, e)
		}
	}
	return result
}

// Ensure MockEventHub implements ports.EventHub.
var _ ports.EventHub = (*MockEventHub)(nil)

// MockAutomator implements ports.Automator with configurable results.
type MockAutomator struct {
	mu sync.Mutex

	AvailableResult bool
	StateResult     ports.EditorState
	StateErr        error
	SelectResult    ports.SelectResult
	SelectErr       error
	Path            string
	PathOK          bool
	ApprovalResult  ports.ApprovalState
	RespondResult   ports.RespondResult
	RespondErr      error
	Image           []byte
	ImageFormat     string
	ScreenshotErr   error

	setModelCalls []string
	setModeCalls  []string
	respondCalls  []bool
	pathCalls     int
}

// NewMockAutomator creates a mock automator that reports availability.
func NewMockAutomator() *MockAutomator {
	return &MockAutomator{
		AvailableResult: true,
		StateResult:     ports.EditorState{Model: "Unknown", Mode: "Unknown"},
		ImageFormat:     "png",
	}
}

// Available returns the configured availability.
func (m *MockAutomator) Available(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AvailableResult
}

// State returns the configured editor state.
func (m *MockAutomator) State(ctx context.Context) (ports.EditorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StateResult, m.StateErr
}

// SetModel records the call and returns the configured result.
func (m *MockAutomator) SetModel(ctx context.Context, name string) (ports.SelectResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setModelCalls = append(m.setModelCalls, name)
	return m.SelectResult, m.SelectErr
}

// SetMode records the call and returns the configured result.
func (m *MockAutomator) SetMode(ctx context.Context, name string) (ports.SelectResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setModeCalls = append(m.setModeCalls, name)
	return m.SelectResult, m.SelectErr
}

// WorkspacePath returns the configured path.
func (m *MockAutomator) WorkspacePath(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pathCalls++
	return m.Path, m.PathOK
}

// Approvals returns the configured approval state.
func (m *MockAutomator) Approvals(ctx context.Context) (ports.ApprovalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ApprovalResult, nil
}

// RespondApproval records the decision and returns the configured result.
func (m *MockAutomator) RespondApproval(ctx context.Context, approve bool) (ports.RespondResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respondCalls = append(m.respondCalls, approve)
	return m.RespondResult, m.RespondErr
}

// Screenshot returns the configured image.
func (m *MockAutomator) Screenshot(ctx context.Context) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Image, m.ImageFormat, m.ScreenshotErr
}

// SetModelCalls returns the recorded SetModel arguments.
func (m *MockAutomator) SetModelCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.setModelCalls...)
}

// SetModeCalls returns the recorded SetMode arguments.
func (m *MockAutomator) SetModeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.setModeCalls...)
}

// RespondCalls returns the recorded RespondApproval decisions.
func (m *MockAutomator) RespondCalls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.respondCalls...)
}

// PathCalls returns the number of WorkspacePath calls.
func (m *MockAutomator) PathCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pathCalls
}

// SetPath updates the configured workspace path result.
func (m *MockAutomator) SetPath(path string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Path = path
	m.PathOK = ok
}

// Ensure MockAutomator implements ports.Automator.
var _ ports.Automator = (*MockAutomator)(nil)

// AssertEqual is a simple equality assertion helper.
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertTrue asserts that a condition is true.
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("%s: expected true, got false", msg)
	}
}

// AssertFalse asserts that a condition is false.
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Errorf("%s: expected false, got true", msg)
	}
}

// AssertNoError asserts that an error is nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertError asserts that an error is not nil.
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}
