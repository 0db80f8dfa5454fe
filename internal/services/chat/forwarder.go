// Package chat glues the external chat-transcript streamer into the
// event hub. The transcript snapshots are opaque: they are forwarded to
// clients unmodified.
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

// DefaultStreamInterval is how often the streamer polls for transcript
// updates.
const DefaultStreamInterval = 2 * time.Second

// Forwarder republishes chat stream updates as chat_update events.
type Forwarder struct {
	streamer ports.ChatStreamer
	hub      ports.EventHub
	interval time.Duration
}

// NewForwarder creates a chat forwarder. interval <= 0 selects the
// default.
func NewForwarder(streamer ports.ChatStreamer, hub ports.EventHub, interval time.Duration) *Forwarder {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	return &Forwarder{streamer: streamer, hub: hub, interval: interval}
}

// Start begins streaming. Without a streamer collaborator this is a
// no-op: chat updates are an optional surface.
func (f *Forwarder) Start() error {
	if f.streamer == nil {
		log.Debug().Msg("no chat streamer configured, chat updates disabled")
		return nil
	}
	if f.streamer.IsStreaming() {
		return nil
	}

	err := f.streamer.StartStream(func(snapshot ports.ChatSnapshot) {
		f.hub.Publish(events.NewChatUpdateEvent(snapshot))
	}, f.interval)
	if err != nil {
		return err
	}

	log.Info().Dur("interval", f.interval).Msg("chat stream started")
	return nil
}

// Stop ends streaming.
func (f *Forwarder) Stop() {
	if f.streamer == nil {
		return
	}
	f.streamer.StopStream()
}

// Snapshot returns the current transcript snapshot, or false when none
// is available.
func (f *Forwarder) Snapshot(ctx context.Context) (ports.ChatSnapshot, bool) {
	if f.streamer == nil {
		return nil, false
	}
	return f.streamer.GetSnapshot(ctx)
}
