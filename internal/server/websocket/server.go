package websocket

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ibridge/internal/domain"
	"ibridge/internal/domain/events"
	"ibridge/internal/domain/ports"
	"ibridge/internal/hub"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 15 * time.Second

	// Time allowed to read the next pong message from the peer. Generous
	// for flaky mobile networks.
	pongWait = 90 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB

	// Send buffer size per client.
	sendBufferSize = 1024

	// Application-level heartbeat interval, sent as a JSON event on top
	// of the protocol-level ping/pong.
	heartbeatInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Mobile clients connect from app webviews with arbitrary origins.
		return true
	},
}

// CommandHandler is a function that handles incoming command frames.
type CommandHandler func(clientID string, message []byte)

// SnapshotProvider builds the initial event delivered to a client right
// after it connects.
type SnapshotProvider interface {
	HistoryEvent() *events.BaseEvent
}

// StatusProvider supplies liveness information for heartbeat events.
type StatusProvider interface {
	AutomationAvailable() bool
}

// Handler accepts WebSocket upgrades, bridges clients to the event hub,
// and broadcasts periodic heartbeats.
type Handler struct {
	commandHandler CommandHandler
	hub            ports.EventHub
	snapshot       SnapshotProvider
	status         StatusProvider

	mu      sync.RWMutex
	clients map[string]*Client
	filters map[string]*hub.FilteredSubscriber

	heartbeatDone chan struct{}
	heartbeatOnce sync.Once
	heartbeatSeq  int64
	startTime     time.Time
}

// NewHandler creates a WebSocket handler. snapshot and status may be nil.
func NewHandler(commandHandler CommandHandler, eventHub ports.EventHub, snapshot SnapshotProvider, status StatusProvider) *Handler {
	return &Handler{
		commandHandler: commandHandler,
		hub:            eventHub,
		snapshot:       snapshot,
		status:         status,
		clients:        make(map[string]*Client),
		filters:        make(map[string]*hub.FilteredSubscriber),
		heartbeatDone:  make(chan struct{}),
		startTime:      time.Now(),
	}
}

// Start launches the heartbeat broadcaster.
func (h *Handler) Start() {
	go h.heartbeatLoop()
}

// Stop closes all client connections and stops the heartbeat.
func (h *Handler) Stop() {
	h.heartbeatOnce.Do(func() { close(h.heartbeatDone) })

	h.mu.Lock()
	for _, client := range h.clients {
		client.Close()
	}
	h.clients = make(map[string]*Client)
	h.filters = make(map[string]*hub.FilteredSubscriber)
	h.mu.Unlock()
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewClient(conn, h.commandHandler, func(id string) {
		if h.hub != nil {
			h.hub.Unsubscribe(id)
		}
		h.removeClient(id)
	})

	// Clients start with an open filter and can narrow it with
	// subscribe/unsubscribe commands.
	filtered := hub.NewFilteredSubscriber(NewClientSubscriber(client))

	h.mu.Lock()
	h.clients[client.ID()] = client
	h.filters[client.ID()] = filtered
	h.mu.Unlock()

	// Queue the stored history before subscribing to the hub so it is the
	// client's first event even when live traffic arrives concurrently.
	if h.snapshot != nil {
		if data, err := h.snapshot.HistoryEvent().ToJSON(); err == nil {
			client.Send(data)
		} else {
			log.Warn().Err(err).Msg("failed to serialize history snapshot")
		}
	}

	if h.hub != nil {
		h.hub.Subscribe(filtered)
	}

	log.Info().
		Str("client_id", client.ID()).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("client connected")

	client.Start()
}

// removeClient removes a client from the handler.
func (h *Handler) removeClient(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	delete(h.filters, id)
	h.mu.Unlock()
	log.Info().Str("client_id", id).Msg("client disconnected")
}

// SubscribeKinds narrows a client's event feed to the given kinds, on top
// of any kinds already subscribed. An empty list resets the filter so the
// client receives everything again.
func (h *Handler) SubscribeKinds(clientID string, kinds []events.EventType) error {
	filtered := h.filterFor(clientID)
	if filtered == nil {
		return domain.ErrClientNotFound
	}

	if len(kinds) == 0 {
		filtered.SubscribeAll()
		return nil
	}
	for _, kind := range kinds {
		filtered.SubscribeKind(kind)
	}
	return nil
}

// UnsubscribeKinds removes kinds from a client's event filter.
func (h *Handler) UnsubscribeKinds(clientID string, kinds []events.EventType) error {
	filtered := h.filterFor(clientID)
	if filtered == nil {
		return domain.ErrClientNotFound
	}

	for _, kind := range kinds {
		filtered.UnsubscribeKind(kind)
	}
	return nil
}

func (h *Handler) filterFor(clientID string) *hub.FilteredSubscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filters[clientID]
}

// Broadcast sends a raw message to all connected clients.
func (h *Handler) Broadcast(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		client.Send(message)
	}
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// heartbeatLoop broadcasts periodic heartbeat events to all clients.
func (h *Handler) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	log.Debug().Dur("interval", heartbeatInterval).Msg("heartbeat loop started")

	for {
		select {
		case <-h.heartbeatDone:
			log.Debug().Msg("heartbeat loop stopped")
			return

		case <-ticker.C:
			h.broadcastHeartbeat()
		}
	}
}

// broadcastHeartbeat sends a heartbeat event to all connected clients.
func (h *Handler) broadcastHeartbeat() {
	if h.ClientCount() == 0 {
		return
	}

	available := false
	if h.status != nil {
		available = h.status.AutomationAvailable()
	}

	seq := atomic.AddInt64(&h.heartbeatSeq, 1)
	uptime := int64(time.Since(h.startTime).Seconds())
	heartbeat := events.NewHeartbeatEvent(seq, uptime, available)

	data, err := heartbeat.ToJSON()
	if err != nil {
		log.Warn().Err(err).Msg("failed to serialize heartbeat")
		return
	}

	h.Broadcast(data)
	log.Trace().Int64("seq", seq).Msg("heartbeat sent")
}
