package hub

import (
	"errors"
	"testing"
	"time"

	"ibridge/internal/domain"
	"ibridge/internal/domain/events"
	"ibridge/internal/testutil"
)

func TestHub_StartStop(t *testing.T) {
	h := New()

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !h.IsRunning() {
		t.Error("hub should be running after Start()")
	}

	// Starting again should be a no-op
	if err := h.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.IsRunning() {
		t.Error("hub should not be running after Stop()")
	}

	// Stopping again should be a no-op
	if err := h.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestHub_Restart(t *testing.T) {
	h := New()
	_ = h.Start()
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if err := h.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	defer func() { _ = h.Stop() }()
	if !h.IsRunning() {
		t.Fatal("hub should be running after restart")
	}

	// The restarted loop must accept subscribers and deliver events.
	sub := testutil.NewMockSubscriber("after-restart")
	h.Subscribe(sub)
	waitForCount(t, h, 1)

	h.Publish(events.NewWorkspaceChangedEvent("/demo", ""))

	deadline := time.After(time.Second)
	for sub.EventCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("subscriber never received an event after restart")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for h.SubscriberCount() != want {
		select {
		case <-deadline:
			t.Fatalf("SubscriberCount = %d, want %d", h.SubscriberCount(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	h := New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	sub := testutil.NewMockSubscriber("test-1")
	h.Subscribe(sub)
	waitForCount(t, h, 1)

	h.Unsubscribe("test-1")
	waitForCount(t, h, 0)

	if !sub.IsClosed() {
		t.Error("unsubscribed subscriber should be closed")
	}
}

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	h := New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	subs := []*testutil.MockSubscriber{
		testutil.NewMockSubscriber("a"),
		testutil.NewMockSubscriber("b"),
		testutil.NewMockSubscriber("c"),
	}
	for _, s := range subs {
		h.Subscribe(s)
	}
	waitForCount(t, h, 3)

	h.Publish(events.NewWorkspaceChangedEvent("/demo", ""))

	deadline := time.After(time.Second)
	for _, s := range subs {
		for s.EventCount() == 0 {
			select {
			case <-deadline:
				t.Fatalf("subscriber %s never received the event", s.ID())
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
}

func TestHub_FailingSubscriberIsDropped(t *testing.T) {
	h := New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	bad := testutil.NewMockSubscriber("bad")
	bad.SetSendError(errors.New("send failed"))
	good := testutil.NewMockSubscriber("good")
	h.Subscribe(bad)
	h.Subscribe(good)
	waitForCount(t, h, 2)

	h.Publish(events.NewWorkspaceChangedEvent("/demo", ""))
	waitForCount(t, h, 1)

	// The healthy subscriber keeps receiving.
	h.Publish(events.NewWorkspaceChangedEvent("/other", "/demo"))
	deadline := time.After(time.Second)
	for good.EventCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("good subscriber has %d events, want 2", good.EventCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h := New()
	_ = h.Start()

	sub := testutil.NewMockSubscriber("test-1")
	h.Subscribe(sub)
	waitForCount(t, h, 1)

	_ = h.Stop()
	if !sub.IsClosed() {
		t.Error("Stop() should close all subscribers")
	}
}

func TestChannelSubscriber_SendAfterClose(t *testing.T) {
	s := NewChannelSubscriber("c1", 4)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Send(events.NewWorkspaceChangedEvent("/demo", "")); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Fatalf("err = %v, want ErrSubscriberClosed", err)
	}
}

func TestChannelSubscriber_FullBufferFails(t *testing.T) {
	s := NewChannelSubscriber("c1", 1)
	ev := events.NewWorkspaceChangedEvent("/demo", "")

	if err := s.Send(ev); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := s.Send(ev); !errors.Is(err, domain.ErrSubscriberClosed) {
		t.Fatalf("err = %v, want ErrSubscriberClosed on full buffer", err)
	}
}

func TestFilteredSubscriber_ForwardsAllByDefault(t *testing.T) {
	inner := testutil.NewMockSubscriber("f1")
	f := NewFilteredSubscriber(inner)

	_ = f.Send(events.NewWorkspaceChangedEvent("/demo", ""))
	_ = f.Send(events.NewFileChangedEvent("/demo"))

	if inner.EventCount() != 2 {
		t.Errorf("forwarded %d events, want 2", inner.EventCount())
	}
}

func TestFilteredSubscriber_FiltersByKind(t *testing.T) {
	inner := testutil.NewMockSubscriber("f1")
	f := NewFilteredSubscriber(inner)
	f.SubscribeKind(events.EventTypeFileChanged)

	_ = f.Send(events.NewWorkspaceChangedEvent("/demo", ""))
	_ = f.Send(events.NewFileChangedEvent("/demo"))

	got := inner.Events()
	if len(got) != 1 {
		t.Fatalf("forwarded %d events, want 1", len(got))
	}
	if got[0].Type() != events.EventTypeFileChanged {
		t.Errorf("forwarded %s, want file_changed", got[0].Type())
	}
}

func TestFilteredSubscriber_ErrorsBypassFilter(t *testing.T) {
	inner := testutil.NewMockSubscriber("f1")
	f := NewFilteredSubscriber(inner)
	f.SubscribeKind(events.EventTypeFileChanged)

	_ = f.Send(events.NewErrorEvent("internal_error", "boom"))

	if inner.EventCount() != 1 {
		t.Error("error events must bypass the kind filter")
	}
}
