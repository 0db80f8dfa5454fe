package websocket

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ibridge/internal/domain"
	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
	"ibridge/internal/testutil"
)

type fakeSnapshot struct{}

func (fakeSnapshot) HistoryEvent() *events.BaseEvent {
	return events.NewHistoryEvent([]events.MessagePayload{{ID: "m1", Sender: "mobile", Body: "hello"}})
}

type fakeStatus struct{ available bool }

func (f fakeStatus) AutomationAvailable() bool { return f.available }

func TestNewHandler(t *testing.T) {
	mockHub := testutil.NewMockEventHub()
	handler := NewHandler(func(clientID string, message []byte) {}, mockHub, nil, nil)

	if handler.commandHandler == nil {
		t.Error("expected commandHandler to be set")
	}
	if handler.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", handler.ClientCount())
	}
}

func dialTestServer(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandlerDeliversSnapshotOnConnect(t *testing.T) {
	mockHub := testutil.NewMockEventHub()
	handler := NewHandler(func(clientID string, message []byte) {}, mockHub, fakeSnapshot{}, nil)
	defer handler.Stop()

	conn := dialTestServer(t, handler)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var envelope struct {
		Event string `json:"event"`
		Data  struct {
			Messages []events.MessagePayload `json:"messages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("parse snapshot %q: %v", data, err)
	}
	if envelope.Event != string(events.EventTypeHistory) {
		t.Errorf("expected first frame to be a history event, got %q", envelope.Event)
	}
	if len(envelope.Data.Messages) != 1 || envelope.Data.Messages[0].Body != "hello" {
		t.Errorf("unexpected snapshot payload %+v", envelope.Data)
	}
}

func TestHandlerRoutesCommands(t *testing.T) {
	mockHub := testutil.NewMockEventHub()

	var mu sync.Mutex
	var received []byte
	done := make(chan struct{})
	handler := NewHandler(func(clientID string, message []byte) {
		mu.Lock()
		received = append([]byte(nil), message...)
		mu.Unlock()
		close(done)
	}, mockHub, nil, nil)
	defer handler.Stop()

	conn := dialTestServer(t, handler)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"get_state"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("command handler was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(string(received), "get_state") {
		t.Errorf("unexpected command frame %q", received)
	}
}

func TestHandlerSubscribesClients(t *testing.T) {
	mockHub := testutil.NewMockEventHub()
	handler := NewHandler(func(clientID string, message []byte) {}, mockHub, nil, nil)
	defer handler.Stop()

	dialTestServer(t, handler)

	deadline := time.Now().Add(2 * time.Second)
	for handler.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if handler.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", handler.ClientCount())
	}
	if mockHub.SubscriberCount() != 1 {
		t.Errorf("expected the client to be subscribed to the hub, got %d", mockHub.SubscriberCount())
	}
}

// waitForClient polls until the handler has one registered client and
// returns its ID.
func waitForClient(t *testing.T, h *Handler) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.clients {
		return id
	}
	t.Fatal("no client registered")
	return ""
}

// waitForSubscriber polls until the hub has a subscriber and returns it.
func waitForSubscriber(t *testing.T, mockHub *testutil.MockEventHub) ports.Subscriber {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for mockHub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	subs := mockHub.Subscribers()
	if len(subs) != 1 {
		t.Fatalf("expected 1 hub subscriber, got %d", len(subs))
	}
	return subs[0]
}

func TestHandlerFiltersEventsByKind(t *testing.T) {
	mockHub := testutil.NewMockEventHub()
	handler := NewHandler(func(clientID string, message []byte) {}, mockHub, nil, nil)
	defer handler.Stop()

	conn := dialTestServer(t, handler)
	clientID := waitForClient(t, handler)

	if err := handler.SubscribeKinds(clientID, []events.EventType{events.EventTypeFileChanged}); err != nil {
		t.Fatalf("SubscribeKinds: %v", err)
	}

	// The hub holds the filtered wrapper, so events pushed through it
	// honor the client's kind filter.
	sub := waitForSubscriber(t, mockHub)

	if err := sub.Send(events.NewWorkspaceChangedEvent("/filtered", "")); err != nil {
		t.Fatalf("send filtered event: %v", err)
	}
	if err := sub.Send(events.NewFileChangedEvent("/tmp/notes.txt")); err != nil {
		t.Fatalf("send matching event: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("parse frame %q: %v", data, err)
	}
	if envelope.Event != string(events.EventTypeFileChanged) {
		t.Errorf("expected the workspace event to be filtered out, got %q first", envelope.Event)
	}

	// Errors bypass the filter.
	if err := sub.Send(events.NewErrorEvent(domain.ErrCodeInternalError, "boom")); err != nil {
		t.Fatalf("send error event: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error event: %v", err)
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("parse frame %q: %v", data, err)
	}
	if envelope.Event != string(events.EventTypeError) {
		t.Errorf("expected error event to bypass the filter, got %q", envelope.Event)
	}
}

func TestUnsubscribeKindsWidensFilter(t *testing.T) {
	mockHub := testutil.NewMockEventHub()
	handler := NewHandler(func(clientID string, message []byte) {}, mockHub, nil, nil)
	defer handler.Stop()

	conn := dialTestServer(t, handler)
	clientID := waitForClient(t, handler)

	kinds := []events.EventType{events.EventTypeFileChanged, events.EventTypeWorkspaceChanged}
	if err := handler.SubscribeKinds(clientID, kinds); err != nil {
		t.Fatalf("SubscribeKinds: %v", err)
	}
	if err := handler.UnsubscribeKinds(clientID, []events.EventType{events.EventTypeFileChanged}); err != nil {
		t.Fatalf("UnsubscribeKinds: %v", err)
	}

	sub := waitForSubscriber(t, mockHub)
	if err := sub.Send(events.NewFileChangedEvent("/tmp/now-muted.txt")); err != nil {
		t.Fatalf("send muted event: %v", err)
	}
	if err := sub.Send(events.NewWorkspaceChangedEvent("/still/wanted", "")); err != nil {
		t.Fatalf("send wanted event: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("parse frame %q: %v", data, err)
	}
	if envelope.Event != string(events.EventTypeWorkspaceChanged) {
		t.Errorf("expected only the workspace event through, got %q first", envelope.Event)
	}
}

func TestSubscribeKindsUnknownClient(t *testing.T) {
	mockHub := testutil.NewMockEventHub()
	handler := NewHandler(func(clientID string, message []byte) {}, mockHub, nil, nil)
	defer handler.Stop()

	err := handler.SubscribeKinds("no-such-client", []events.EventType{events.EventTypeFileChanged})
	if !errors.Is(err, domain.ErrClientNotFound) {
		t.Errorf("expected ErrClientNotFound, got %v", err)
	}
}

// eagerHub delivers a live event to each subscriber the instant it
// subscribes, simulating a publish racing the connection handshake.
type eagerHub struct {
	*testutil.MockEventHub
	live events.Event
}

func (h *eagerHub) Subscribe(sub ports.Subscriber) {
	h.MockEventHub.Subscribe(sub)
	_ = sub.Send(h.live)
}

func TestHandlerSnapshotPrecedesLiveEvents(t *testing.T) {
	mockHub := &eagerHub{
		MockEventHub: testutil.NewMockEventHub(),
		live:         events.NewFileChangedEvent("/tmp/racer.txt"),
	}
	handler := NewHandler(func(clientID string, message []byte) {}, mockHub, fakeSnapshot{}, nil)
	defer handler.Stop()

	conn := dialTestServer(t, handler)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("parse frame %q: %v", data, err)
	}
	if envelope.Event != string(events.EventTypeHistory) {
		t.Errorf("expected history before live events, got %q first", envelope.Event)
	}

	// The live event still arrives, just after the snapshot.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read live event: %v", err)
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("parse frame %q: %v", data, err)
	}
	if envelope.Event != string(events.EventTypeFileChanged) {
		t.Errorf("expected the live event second, got %q", envelope.Event)
	}
}

func TestBroadcastHeartbeat(t *testing.T) {
	mockHub := testutil.NewMockEventHub()
	handler := NewHandler(func(clientID string, message []byte) {}, mockHub, nil, fakeStatus{available: true})
	defer handler.Stop()

	conn := dialTestServer(t, handler)

	// Wait until the client registers, then force a heartbeat.
	deadline := time.Now().Add(2 * time.Second)
	for handler.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	handler.broadcastHeartbeat()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var envelope struct {
		Event string                  `json:"event"`
		Data  events.HeartbeatPayload `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("parse heartbeat %q: %v", data, err)
	}
	if envelope.Event != string(events.EventTypeHeartbeat) {
		t.Errorf("expected heartbeat event, got %q", envelope.Event)
	}
	if !envelope.Data.AutomationAvailable {
		t.Error("expected automation_available true")
	}
	if envelope.Data.Seq != 1 {
		t.Errorf("expected seq 1, got %d", envelope.Data.Seq)
	}
}
