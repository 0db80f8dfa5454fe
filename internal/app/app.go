// Package app orchestrates all components of ibridge.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ibridge/internal/adapters/watcher"
	"ibridge/internal/cdp"
	"ibridge/internal/config"
	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
	"ibridge/internal/hub"
	"ibridge/internal/ide"
	"ibridge/internal/pairing"
	httpserver "ibridge/internal/server/http"
	wsserver "ibridge/internal/server/websocket"
	"ibridge/internal/services/chat"
	"ibridge/internal/services/inbox"
	"ibridge/internal/workspace"
)

// App is the main application struct that orchestrates all components.
type App struct {
	cfg     *config.Config
	version string

	// Core components
	hub         ports.EventHub
	discovery   *cdp.Discovery
	automator   ports.Automator
	monitor     *workspace.Monitor
	fileWatcher *watcher.Watcher
	inbox       *inbox.Store
	chat        *chat.Forwarder
	wsHandler   *wsserver.Handler
	httpServer  *httpserver.Server
	qrGenerator *pairing.QRGenerator

	// Optional external collaborators
	chatStreamer ports.ChatStreamer
	quota        ports.QuotaProvider

	// Session info
	sessionID string
	startTime time.Time

	// Lifecycle
	mu      sync.RWMutex
	running bool
}

// New creates a new App instance.
func New(cfg *config.Config, version string) (*App, error) {
	discovery := cdp.NewDiscovery(
		cfg.Debugger.Host,
		cfg.Debugger.Port,
		cfg.Editor.Product,
		cfg.Editor.SecondaryMarker,
	)

	a := &App{
		cfg:       cfg,
		version:   version,
		hub:       hub.New(),
		discovery: discovery,
		automator: ide.New(discovery, cfg.Editor.Product),
		sessionID: uuid.New().String(),
	}
	return a, nil
}

// SetChatStreamer attaches the optional chat transcript collaborator.
// Must be called before Start.
func (a *App) SetChatStreamer(streamer ports.ChatStreamer) {
	a.chatStreamer = streamer
}

// SetQuotaProvider attaches the optional quota collaborator. Must be
// called before Start.
func (a *App) SetQuotaProvider(quota ports.QuotaProvider) {
	a.quota = quota
}

// AutomationAvailable reports whether the editor endpoint is reachable,
// for heartbeats and status responses.
func (a *App) AutomationAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return a.automator.Available(ctx)
}

// Start starts the application and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.mu.Unlock()

	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	// Trace every broadcast for debugging.
	a.hub.Subscribe(hub.NewCallbackSubscriber("internal-logger", func(event events.Event) {
		log.Trace().
			Str("event_type", string(event.Type())).
			Time("timestamp", event.Timestamp()).
			Msg("event broadcast")
	}))

	// Message inbox
	store, err := inbox.Open(a.cfg.Inbox.Path, a.hub)
	if err != nil {
		return fmt.Errorf("failed to open inbox: %w", err)
	}
	a.inbox = store

	// File watcher follows the active workspace.
	if a.cfg.Watcher.Enabled {
		a.fileWatcher = watcher.NewWatcher(a.hub, time.Duration(a.cfg.Watcher.DebounceMS)*time.Millisecond)
	}

	// Workspace monitor repoints the watcher on every confirmed change.
	a.monitor = workspace.NewMonitor(
		a.automator,
		a.hub,
		time.Duration(a.cfg.Workspace.PollIntervalMS)*time.Millisecond,
		a.onWorkspaceChange,
	)
	a.monitor.Start(ctx)

	// Chat transcript forwarding (optional collaborator).
	a.chat = chat.NewForwarder(a.chatStreamer, a.hub, 0)
	if err := a.chat.Start(); err != nil {
		log.Warn().Err(err).Msg("failed to start chat stream")
	}

	// Pairing QR
	a.qrGenerator = pairing.NewQRGenerator(a.cfg.Server.Host, a.cfg.Server.Port, a.sessionID)
	if a.cfg.Server.ExternalWSURL != "" {
		a.qrGenerator.SetExternalURL(a.cfg.Server.ExternalWSURL)
	}

	// WebSocket + HTTP surface
	a.wsHandler = wsserver.NewHandler(a.HandleCommand, a.hub, a.inbox, a)
	a.wsHandler.Start()

	a.httpServer = httpserver.NewServer(
		a.cfg.Server.Host,
		a.cfg.Server.Port,
		a.automator,
		a.monitor,
		a.inbox,
		a.qrGenerator,
		a.quota,
		a.wsHandler,
	)
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	log.Info().
		Str("session_id", a.sessionID).
		Str("version", a.version).
		Str("addr", a.httpServer.Addr()).
		Int("debugger_port", a.cfg.Debugger.Port).
		Msg("session started")

	if a.cfg.Pairing.ShowQRInTerminal {
		a.qrGenerator.PrintToTerminal()
	}

	<-ctx.Done()
	return a.shutdown()
}

// onWorkspaceChange repoints the file watcher at the new workspace and
// labels the QR pairing info with its name.
func (a *App) onWorkspaceChange(path, previous string) {
	if a.qrGenerator != nil {
		a.qrGenerator.SetWorkspace(filepath.Base(path))
	}
	if a.fileWatcher == nil {
		return
	}
	if err := a.fileWatcher.Watch(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to watch workspace")
	}
}

// shutdown stops components in reverse start order.
func (a *App) shutdown() error {
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown error")
		}
	}
	if a.wsHandler != nil {
		a.wsHandler.Stop()
	}
	if a.chat != nil {
		a.chat.Stop()
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.fileWatcher != nil {
		_ = a.fileWatcher.Close()
	}
	if a.inbox != nil {
		_ = a.inbox.Close()
	}
	if err := a.hub.Stop(); err != nil {
		log.Warn().Err(err).Msg("event hub shutdown error")
	}

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	log.Info().Msg("shutdown complete")
	return nil
}

// SessionID returns the session identifier shown to pairing clients.
func (a *App) SessionID() string {
	return a.sessionID
}

// IsRunning reports whether the app has been started and not stopped.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}
