package ports

import (
	"context"
	"time"
)

// ChatSnapshot is an opaque chat transcript snapshot produced by the chat
// stream collaborator. The core never inspects its contents.
type ChatSnapshot = interface{}

// ChatStreamer is the external chat-transcript streaming collaborator. The
// core only forwards its update callback into the event hub.
type ChatStreamer interface {
	// GetSnapshot returns the current transcript snapshot, or false when
	// none is available.
	GetSnapshot(ctx context.Context) (ChatSnapshot, bool)

	// StartStream begins polling for transcript updates, invoking onUpdate
	// for each new snapshot.
	StartStream(onUpdate func(ChatSnapshot), interval time.Duration) error

	// StopStream stops polling.
	StopStream()

	// IsStreaming reports whether a stream is active.
	IsStreaming() bool
}

// Quota describes usage quota reported by the quota collaborator.
type Quota struct {
	Available bool     `json:"available"`
	Models    []string `json:"models"`
}

// QuotaProvider is the external quota-reporting collaborator, consumed
// read-only.
type QuotaProvider interface {
	GetQuota(ctx context.Context) (Quota, error)
	IsAvailable(ctx context.Context) bool
}

// FileWatcher watches a single directory for changes, emitting one
// debounced file_changed event per burst of raw OS events.
type FileWatcher interface {
	// Watch starts watching path, replacing any prior watch.
	Watch(path string) error

	// Unwatch cancels the active watch, if any.
	Unwatch() error

	// IsWatching reports whether a watch is active.
	IsWatching() bool

	// Close releases the watcher's resources.
	Close() error
}
