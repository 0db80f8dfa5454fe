// Package workspace reconciles the workspace path the editor reports with
// the last known good value, publishing workspace_changed events when the
// user switches projects.
package workspace

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
)

// DefaultPollInterval is how often the monitor re-reads the editor's
// workspace path.
const DefaultPollInterval = 5 * time.Second

// PathSource yields the editor's current workspace path. The second
// return is false when the path could not be determined this round.
type PathSource interface {
	WorkspacePath(ctx context.Context) (string, bool)
}

// ChangeFunc is invoked after a confirmed workspace change, with the new
// and previous paths. Used to repoint collaborators such as the file
// watcher.
type ChangeFunc func(path, previous string)

// Monitor polls a PathSource and keeps a sticky last-known-good path:
// a round that yields nothing never clears an established value, it only
// counts as a failure.
type Monitor struct {
	source   PathSource
	hub      ports.EventHub
	interval time.Duration
	onChange ChangeFunc

	mu       sync.RWMutex
	lastPath string

	polling  atomic.Bool
	failures atomic.Int64

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a workspace monitor. interval <= 0 selects the
// default. onChange may be nil.
func NewMonitor(source PathSource, hub ports.EventHub, interval time.Duration, onChange ChangeFunc) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		source:   source,
		hub:      hub,
		interval: interval,
		onChange: onChange,
	}
}

// Start launches the polling loop with an immediate first poll. Calling
// Start on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx)
	log.Info().Dur("interval", m.interval).Msg("workspace monitor started")
}

// Stop cancels the loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
	log.Info().Msg("workspace monitor stopped")
}

// LastPath returns the sticky last-known-good workspace path, empty when
// none has been established yet.
func (m *Monitor) LastPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastPath
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	m.Poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll runs one reconciliation round. When a previous round is still in
// flight the tick is skipped rather than queued, so a slow editor never
// piles up concurrent scrapes.
func (m *Monitor) Poll(ctx context.Context) {
	if !m.polling.CompareAndSwap(false, true) {
		log.Debug().Msg("workspace poll still in flight, skipping tick")
		return
	}
	defer m.polling.Store(false)

	path, ok := m.source.WorkspacePath(ctx)
	if !ok || path == "" {
		m.noteFailure()
		return
	}
	m.failures.Store(0)

	m.mu.Lock()
	previous := m.lastPath
	if samePath(path, previous) {
		m.mu.Unlock()
		return
	}
	m.lastPath = path
	m.mu.Unlock()

	log.Info().Str("path", path).Str("previous", previous).Msg("workspace changed")
	if m.hub != nil {
		m.hub.Publish(events.NewWorkspaceChangedEvent(path, previous))
	}
	if m.onChange != nil {
		m.onChange(path, previous)
	}
}

// noteFailure counts a failed round and logs with backoff: the first few
// failures individually, then every tenth, so a detached editor does not
// flood the log.
func (m *Monitor) noteFailure() {
	n := m.failures.Add(1)
	if n <= 3 || n%10 == 0 {
		log.Debug().Int64("consecutive_failures", n).Msg("workspace path unavailable")
	}
}

// samePath compares workspace paths, case-insensitively on platforms
// whose default filesystems are case-insensitive.
func samePath(a, b string) bool {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
