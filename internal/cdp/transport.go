// Package cdp implements the remote debugging protocol client used to
// automate the editor: connection transport with request/response
// correlation, target discovery, and multi-context script evaluation.
package cdp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ibridge/internal/domain"
)

const (
	// ReadCallTimeout is the deadline for read-only protocol calls.
	ReadCallTimeout = 3 * time.Second

	// MutateCallTimeout is the deadline for calls that mutate editor state.
	MutateCallTimeout = 5 * time.Second

	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 10 * time.Second
)

// NotificationHandler receives unsolicited protocol notifications
// (frames carrying a method but no id).
type NotificationHandler func(method string, params json.RawMessage)

// frame is the wire format for protocol messages in both directions.
type frame struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *frameError     `json:"error,omitempty"`
}

type frameError struct {
	Message string `json:"message"`
}

type callOutcome struct {
	result json.RawMessage
	err    error
}

func (o callOutcome) unpack() (json.RawMessage, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.result, nil
}

// Conn is a single control-channel connection to a debuggable target.
// One Conn serves one logical operation; there is no cross-operation
// pooling. Request ids start at 1 and are strictly increasing per Conn;
// the id is the sole correlation key.
type Conn struct {
	ws       *websocket.Conn
	onNotify NotificationHandler

	writeMu sync.Mutex

	idMu   sync.Mutex
	nextID int64

	pendingMu sync.Mutex
	pending   map[int64]chan callOutcome

	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens a connection to the target's advertised debugger endpoint.
// onNotify may be nil if the caller does not care about notifications.
func Dial(endpoint string, onNotify NotificationHandler) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	ws, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		return nil, domain.NewCDPError("dial", err)
	}

	c := &Conn{
		ws:       ws,
		onNotify: onNotify,
		nextID:   1,
		pending:  make(map[int64]chan callOutcome),
		done:     make(chan struct{}),
	}

	go c.readLoop()

	return c, nil
}

// Call sends a protocol request and waits for its correlated response.
// A timeout removes the call from the pending set and fails it without
// tearing down the connection. An in-band error field fails the call with
// the carried message.
func (c *Conn) Call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	c.idMu.Lock()
	id := c.nextID
	c.nextID++
	c.idMu.Unlock()

	req := frame{ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, domain.NewCDPError(method, err)
		}
		req.Params = raw
	}

	outcome := make(chan callOutcome, 1)
	c.pendingMu.Lock()
	c.pending[id] = outcome
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	err := c.ws.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.removePending(id)
		return nil, domain.NewCDPError(method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// The failure branches below can become ready concurrently with a
	// response landing in outcome; a buffered response always wins so the
	// call reports exactly one outcome and never drops a real result.
	select {
	case out := <-outcome:
		return out.unpack()

	case <-timer.C:
		c.removePending(id)
		if out, ok := takeDelivered(outcome); ok {
			return out.unpack()
		}
		log.Debug().Str("method", method).Int64("id", id).Dur("timeout", timeout).Msg("cdp call timed out")
		return nil, domain.NewCDPError(method, domain.ErrCallTimeout)

	case <-ctx.Done():
		c.removePending(id)
		if out, ok := takeDelivered(outcome); ok {
			return out.unpack()
		}
		return nil, domain.NewCDPError(method, ctx.Err())

	case <-c.done:
		c.removePending(id)
		if out, ok := takeDelivered(outcome); ok {
			return out.unpack()
		}
		return nil, domain.NewCDPError(method, domain.ErrConnClosed)
	}
}

// takeDelivered drains an already-buffered outcome without blocking.
func takeDelivered(outcome chan callOutcome) (callOutcome, bool) {
	select {
	case out := <-outcome:
		return out, true
	default:
		return callOutcome{}, false
	}
}

// readLoop reads frames from the connection, routing responses to waiting
// callers and notifications to the handler. A response whose id matches no
// pending call is ignored.
func (c *Conn) readLoop() {
	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			c.failAllPending()
			return
		}

		// Unsolicited notification: method set, no id.
		if f.ID == 0 && f.Method != "" {
			if c.onNotify != nil {
				c.onNotify(f.Method, f.Params)
			}
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[f.ID]
		if ok {
			delete(c.pending, f.ID)
		}
		c.pendingMu.Unlock()
		if !ok {
			continue
		}

		if f.Error != nil {
			ch <- callOutcome{err: domain.NewRemoteError(f.Method, f.Error.Message)}
			continue
		}
		ch <- callOutcome{result: f.Result}
	}
}

// failAllPending rejects every in-flight call after a connection-level
// failure and marks the connection closed.
func (c *Conn) failAllPending() {
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		ch <- callOutcome{err: domain.NewCDPError("read", domain.ErrConnClosed)}
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) removePending(id int64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// Close closes the connection. Any in-flight calls fail with ErrConnClosed.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// Done returns a channel that's closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
