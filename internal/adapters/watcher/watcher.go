// Package watcher implements the workspace file watcher using fsnotify.
package watcher

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"ibridge/internal/domain"
	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

// DefaultDebounceWindow coalesces editor save bursts (temp file, write,
// rename) into a single notification.
const DefaultDebounceWindow = 300 * time.Millisecond

// Watcher watches a single workspace directory and publishes one
// debounced file_changed event per burst of raw OS events. It follows
// the active workspace: Watch replaces any prior watch.
type Watcher struct {
	hub    ports.EventHub
	window time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	path    string
	cancel  chan struct{}
	bounce  *debouncer
	closed  bool
}

// NewWatcher creates a watcher publishing into hub. window <= 0 selects
// the default debounce window.
func NewWatcher(hub ports.EventHub, window time.Duration) *Watcher {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Watcher{hub: hub, window: window}
}

// Watch starts watching path, tearing down any prior watch first.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return domain.ErrNotWatching
	}

	w.teardownLocked()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return err
	}

	cancel := make(chan struct{})
	w.fsw = fsw
	w.path = path
	w.cancel = cancel
	w.bounce = newDebouncer(w.window, func() {
		w.hub.Publish(events.NewFileChangedEvent(path))
		log.Debug().Str("path", path).Msg("file change burst settled")
	})

	go w.eventLoop(fsw, w.bounce, cancel)

	log.Info().Str("path", path).Dur("debounce", w.window).Msg("file watcher started")
	return nil
}

// Unwatch cancels the active watch.
func (w *Watcher) Unwatch() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return domain.ErrNotWatching
	}
	w.teardownLocked()
	log.Info().Msg("file watcher stopped")
	return nil
}

// IsWatching reports whether a watch is active.
func (w *Watcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsw != nil
}

// Close releases the watcher. Further Watch calls fail.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.teardownLocked()
	w.closed = true
	return nil
}

// teardownLocked stops the active watch. Callers hold w.mu.
func (w *Watcher) teardownLocked() {
	if w.fsw == nil {
		return
	}
	close(w.cancel)
	_ = w.fsw.Close()
	w.bounce.stop()
	w.fsw = nil
	w.path = ""
	w.cancel = nil
	w.bounce = nil
}

// eventLoop forwards raw OS events into the debouncer. Chmod-only events
// carry no content change and are dropped.
func (w *Watcher) eventLoop(fsw *fsnotify.Watcher, bounce *debouncer, cancel chan struct{}) {
	for {
		select {
		case <-cancel:
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			bounce.touch()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

var _ ports.FileWatcher = (*Watcher)(nil)
