package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
	"ibridge/internal/testutil"
)

type fakeStreamer struct {
	mu        sync.Mutex
	onUpdate  func(ports.ChatSnapshot)
	streaming bool
	snapshot  ports.ChatSnapshot
}

func (f *fakeStreamer) GetSnapshot(ctx context.Context) (ports.ChatSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, f.snapshot != nil
}

func (f *fakeStreamer) StartStream(onUpdate func(ports.ChatSnapshot), interval time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = onUpdate
	f.streaming = true
	return nil
}

func (f *fakeStreamer) StopStream() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streaming = false
}

func (f *fakeStreamer) IsStreaming() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming
}

func (f *fakeStreamer) emit(snapshot ports.ChatSnapshot) {
	f.mu.Lock()
	fn := f.onUpdate
	f.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}

func TestForwarder_PublishesChatUpdates(t *testing.T) {
	streamer := &fakeStreamer{}
	hub := testutil.NewMockEventHub()
	f := NewForwarder(streamer, hub, time.Millisecond)

	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.Stop()

	streamer.emit(map[string]interface{}{"messages": []string{"hi"}})
	streamer.emit(map[string]interface{}{"messages": []string{"hi", "there"}})

	got := hub.EventsOfType(events.EventTypeChatUpdate)
	if len(got) != 2 {
		t.Fatalf("published %d chat_update events, want 2", len(got))
	}
}

func TestForwarder_StartWithoutStreamerIsNoop(t *testing.T) {
	f := NewForwarder(nil, testutil.NewMockEventHub(), 0)
	if err := f.Start(); err != nil {
		t.Fatalf("Start without streamer: %v", err)
	}
	f.Stop()

	if _, ok := f.Snapshot(context.Background()); ok {
		t.Error("expected no snapshot without a streamer")
	}
}

func TestForwarder_StopEndsStream(t *testing.T) {
	streamer := &fakeStreamer{}
	f := NewForwarder(streamer, testutil.NewMockEventHub(), 0)

	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !streamer.IsStreaming() {
		t.Fatal("expected streaming after Start")
	}
	f.Stop()
	if streamer.IsStreaming() {
		t.Error("expected streaming to end after Stop")
	}
}
