package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulseboard/pulse/pkg/observability"
)

const (
	// sendBuffer bounds the per-subscriber outbound queue. When it fills,
	// new messages for that subscriber are dropped.
	sendBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxControlMessageSize = 1024
)

// Conn is one subscriber connection. The hub writes into the buffered send
// channel with a non-blocking send; the write pump drains it in order, so a
// single subscriber always observes messages in publish order.
type Conn struct {
	id       string
	tenantID string

	ws *websocket.Conn

	// mu guards closed so the hub never sends on a channel a concurrent
	// Remove or Shutdown has already closed.
	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// newConn builds a connection without a transport. Used by tests to observe
// hub delivery directly through the send channel.
func newConn(id, tenantID string) *Conn {
	return &Conn{
		id:       id,
		tenantID: tenantID,
		send:     make(chan []byte, sendBuffer),
	}
}

// NewConn wraps an upgraded websocket for hub registration.
func NewConn(id, tenantID string, ws *websocket.Conn) *Conn {
	c := newConn(id, tenantID)
	c.ws = ws
	return c
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// TenantID returns the tenant the connection authenticated as.
func (c *Conn) TenantID() string { return c.tenantID }

// trySend enqueues a message without blocking. Returns false when the
// message was dropped, either because the subscriber's buffer is full or
// the connection has already been removed.
func (c *Conn) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend marks the connection closed and closes the send channel so the
// write pump exits. Holding mu while closing means no trySend can race the
// close. Idempotent.
func (c *Conn) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump drains the send channel onto the websocket and keeps the
// connection alive with pings. Exits when the send channel closes or a
// write fails.
func (c *Conn) writePump(logger *observability.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.WithField("connection_id", c.id).WithError(err).Debug("subscriber write failed")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes control messages from the subscriber until the
// connection closes, then removes it from the hub.
func (c *Conn) readPump(hub *Hub, logger *observability.Logger, onControl func(ControlMessage)) {
	defer func() {
		hub.Remove(c.id)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxControlMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ControlMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithField("connection_id", c.id).WithError(err).Debug("subscriber read failed")
			}
			return
		}
		onControl(msg)
	}
}
