// Package websocket provides the WebSocket surface for mobile clients:
// real-time event delivery from the hub, plus inbound command frames.
//
// Each Client manages:
//   - A goroutine for reading incoming frames (readPump)
//   - A goroutine for writing outgoing frames (writePump)
//   - Automatic ping/pong for connection health monitoring
//
// Message flow:
//   - Incoming: WebSocket → readPump → CommandHandler
//   - Outgoing: Event hub → Client.SendEvent() → writePump → WebSocket
//
// Send and SendEvent are safe to call from any goroutine and Close is
// safe to call multiple times.
package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ibridge/internal/domain"
	"ibridge/internal/domain/events"
)

// Client represents a WebSocket client connection.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	done           chan struct{}
	commandHandler CommandHandler
	onClose        func(id string)

	dropped atomic.Int64

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, commandHandler CommandHandler, onClose func(id string)) *Client {
	return &Client{
		id:             uuid.New().String(),
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		commandHandler: commandHandler,
		onClose:        onClose,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Start starts the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send queues a raw message to be sent to the client.
func (c *Client) Send(message []byte) {
	if c.isClosed() {
		return
	}

	select {
	case c.send <- message:
	default:
		// Channel full, client is too slow
		n := c.dropped.Add(1)
		log.Warn().Str("client_id", c.id).Int64("dropped_total", n).Msg("client send channel full, dropping message")
	}
}

// SendEvent serializes an event and queues it for delivery. It returns
// ErrSubscriberClosed once the connection is shutting down so the hub can
// discard this client.
func (c *Client) SendEvent(event events.Event) error {
	if c.isClosed() {
		return domain.ErrSubscriberClosed
	}

	data, err := event.ToJSON()
	if err != nil {
		return err
	}
	c.Send(data)
	return nil
}

// Dropped returns how many outbound messages were discarded because the
// client could not keep up.
func (c *Client) Dropped() int64 {
	return c.dropped.Load()
}

// Done returns a channel that is closed when the client has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
}

// readPump pumps frames from the WebSocket connection to the command handler.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}

		if c.commandHandler != nil {
			c.commandHandler(c.id, message)
		}
	}
}

// writePump pumps messages from the send channel to the WebSocket
// connection. Each message goes out as its own frame so client-side JSON
// parsing never sees concatenated objects.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message, ok := <-c.send:
			if !ok {
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("ping error")
				return
			}
		}
	}
}
