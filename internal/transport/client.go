package transport

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// envelopeValidator enforces InboundEnvelope's struct tags (a non-empty
// "type"). A package-level *validator.Validate is safe for concurrent use
// and is the same sharing pattern the teacher uses for its own
// *validator.Validate field.
var envelopeValidator = validator.New()

const (
	writeWait        = 10 * time.Second
	pongWait         = 30 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 64 * 1024
	sendEventTimeout = 2 * time.Second
)

// InboundHandler is invoked once per inbound frame with the decoded event
// envelope; the transport layer itself does not interpret event types —
// that belongs to the router (dispatcher/presence/proactive), matching the
// teacher's handleIncomingMessage type-switch shape but delegated outward.
type InboundHandler func(connID string, envelope InboundEnvelope)

// InboundEnvelope is the generic shape every inbound frame is decoded into
// before being routed by type.
type InboundEnvelope struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

// Client is a middleman between one websocket connection and the Hub,
// grounded on the teacher's internal/websocket/client.go ReadPump/WritePump
// shape (buffered send channel, ping/pong keepalive, bounded-wait send
// with a drop-on-timeout).
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	onInbound InboundHandler
	onClose   func(connID string)
	limiter   *rate.Limiter

	connMutex sync.Mutex
	closeOnce sync.Once
}

// NewClient builds a Client. limiter bounds the rate of inbound frames
// this connection may submit, an abuse guard the teacher does not need
// (its WebSocket only ever serves authenticated users) but this transport
// does, since most connections here are anonymous visitors.
func NewClient(id string, hub *Hub, conn *websocket.Conn, onInbound InboundHandler, onClose func(connID string), limiter *rate.Limiter) *Client {
	return &Client{
		id:        id,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		onInbound: onInbound,
		onClose:   onClose,
		limiter:   limiter,
	}
}

// ID returns this connection's id.
func (c *Client) ID() string { return c.id }

// ReadPump pumps inbound frames from the connection to onInbound. Run as
// its own goroutine; returns (and tears the connection down) on any read
// error or when the connection closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		if c.onClose != nil {
			c.onClose(c.id)
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("transport: read error on connection %s: %v", c.id, err)
			}
			break
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.sendEvent("session_error", map[string]string{"message": "too many messages, slow down"})
			continue
		}

		var envelope InboundEnvelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			c.sendEvent("session_error", map[string]string{"message": "invalid message format"})
			continue
		}
		if err := envelopeValidator.Struct(envelope); err != nil {
			c.sendEvent("session_error", map[string]string{"message": "missing required event type"})
			continue
		}
		if c.onInbound != nil {
			c.onInbound(c.id, envelope)
		}
	}
}

// WritePump pumps queued events out to the connection, grounded on the
// teacher's ping/pong-keepalive loop.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				log.Printf("transport: write error on connection %s: %v", c.id, err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				log.Printf("transport: ping error on connection %s: %v", c.id, err)
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// sendEvent marshals and enqueues an outbound event, waiting at most
// sendEventTimeout for room in the send buffer and dropping the event
// after that, the way the teacher's Client.sendEvent does — a slow
// subscriber holds up a session-room broadcast for at most that long.
func (c *Client) sendEvent(eventType string, data any) {
	payload := map[string]any{"type": eventType, "data": data}
	encoded, err := json.Marshal(payload)
	if err != nil {
		log.Printf("transport: failed to marshal event %s for connection %s: %v", eventType, c.id, err)
		return
	}
	select {
	case c.send <- encoded:
	case <-time.After(sendEventTimeout):
		log.Printf("transport: send channel full for connection %s, dropping event %s", c.id, eventType)
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) close() {
	c.conn.Close()
}
