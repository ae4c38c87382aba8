// Package realtime provides the client-side connection to the planning
// poker server: one persistent websocket shared by the whole client,
// with reconnect, heartbeat and typed message dispatch.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LTG-OPs/planning-poker/models"
)

// Status is the observable connection state.
type Status string

// Possible channel statuses
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// Handler receives the raw payload of a matching inbound message.
type Handler func(payload json.RawMessage)

// Options tune the channel. Zero values fall back to the defaults:
// 30s heartbeat, 1s reconnect base delay, 5 reconnect attempts,
// reconnection enabled.
type Options struct {
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	DisableReconnect     bool
	Dialer               *websocket.Dialer
}

// Channel is a reconnect-tolerant websocket connection with per-type
// publish/subscribe dispatch. All state is guarded by one mutex: the
// heartbeat ticker, the reconnect timer and the read loop all touch it.
type Channel struct {
	url  string
	opts Options

	mu             sync.Mutex
	conn           *websocket.Conn
	status         Status
	handlers       map[models.MessageType][]*handlerEntry
	intentional    bool
	attempts       int
	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}
}

type handlerEntry struct {
	fn   Handler
	once bool
}

// New creates a channel for the given websocket URL. The channel is
// idle until Connect is called.
func New(url string, opts Options) *Channel {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.ReconnectBaseDelay <= 0 {
		opts.ReconnectBaseDelay = time.Second
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = 5
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Channel{
		url:      url,
		opts:     opts,
		status:   StatusDisconnected,
		handlers: make(map[models.MessageType][]*handlerEntry),
	}
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect establishes the transport. It is idempotent: a channel that
// is already connected or connecting is left alone. A fresh Connect
// re-arms reconnection after a halt, resetting the attempt counter.
func (c *Channel) Connect() error {
	c.mu.Lock()
	if c.status == StatusConnected || c.status == StatusConnecting {
		c.mu.Unlock()
		return nil
	}
	c.intentional = false
	c.attempts = 0
	c.cancelReconnectLocked()
	c.status = StatusConnecting
	c.mu.Unlock()

	return c.dial()
}

// Disconnect tears the connection down deliberately: the reconnect
// timer and heartbeat are cancelled and no automatic reconnection
// happens until the next Connect call.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.intentional = true
	c.cancelReconnectLocked()
	c.stopHeartbeatLocked()
	conn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Send serializes a typed envelope onto the wire. When the channel is
// not connected the message is dropped with a warning; there is no
// outbound queue.
func (c *Channel) Send(t models.MessageType, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusConnected || c.conn == nil {
		log.Printf("realtime: dropping %s message, channel is %s", t, c.status)
		return
	}
	if err := c.conn.WriteJSON(models.NewEnvelope(t, payload)); err != nil {
		log.Printf("realtime: write %s failed: %v", t, err)
	}
}

// On registers a handler for a server-originated message type. Multiple
// handlers per type run in registration order. The returned function
// deregisters exactly this handler.
func (c *Channel) On(t models.MessageType, fn Handler) func() {
	entry := &handlerEntry{fn: fn}

	c.mu.Lock()
	c.handlers[t] = append(c.handlers[t], entry)
	c.mu.Unlock()

	return func() { c.removeHandler(t, entry) }
}

// Once registers a handler that deregisters itself after its first
// invocation.
func (c *Channel) Once(t models.MessageType, fn Handler) {
	entry := &handlerEntry{fn: fn, once: true}

	c.mu.Lock()
	c.handlers[t] = append(c.handlers[t], entry)
	c.mu.Unlock()
}

func (c *Channel) removeHandler(t models.MessageType, entry *handlerEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.handlers[t]
	for i, e := range entries {
		if e == entry {
			c.handlers[t] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

func (c *Channel) dial() error {
	conn, resp, err := c.opts.Dialer.Dial(c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.intentional {
		// Disconnect raced the dial; drop the connection.
		if conn != nil {
			go conn.Close()
		}
		return nil
	}
	if err != nil {
		log.Printf("realtime: connect failed: %v", err)
		c.status = StatusError
		c.scheduleReconnectLocked()
		return err
	}

	c.conn = conn
	c.status = StatusConnected
	c.attempts = 0
	c.startHeartbeatLocked()
	go c.readLoop(conn)

	return nil
}

// readLoop pumps inbound messages for one underlying connection and
// reports its close.
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn)
			return
		}
		c.dispatch(raw)
	}
}

// dispatch parses an envelope and invokes the handlers registered for
// its declared type. Malformed frames and panicking handlers are logged
// and never take the dispatcher down.
func (c *Channel) dispatch(raw []byte) {
	var frame models.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Printf("realtime: discarding malformed frame: %v", err)
		return
	}

	c.mu.Lock()
	entries := append([]*handlerEntry(nil), c.handlers[frame.Type]...)
	c.mu.Unlock()

	for _, entry := range entries {
		if entry.once {
			c.removeHandler(frame.Type, entry)
		}
		c.invoke(frame.Type, entry, frame.Payload)
	}
}

func (c *Channel) invoke(t models.MessageType, entry *handlerEntry, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("realtime: %s handler panicked: %v", t, r)
		}
	}()
	entry.fn(payload)
}

// handleClose reacts to the transport closing underneath the channel.
// An intentional disconnect stays down; an unexpected close schedules
// a reconnect with exponential backoff.
func (c *Channel) handleClose(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		// Stale close from a connection already replaced or torn down.
		return
	}

	c.stopHeartbeatLocked()
	c.conn = nil

	if c.intentional {
		c.status = StatusDisconnected
		return
	}

	c.status = StatusError
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the reconnect timer with a delay of
// base x 2^(attempt-1). Reaching the attempt cap halts retries until
// the next explicit Connect.
func (c *Channel) scheduleReconnectLocked() {
	if c.opts.DisableReconnect {
		return
	}
	if c.attempts >= c.opts.MaxReconnectAttempts {
		log.Printf("realtime: giving up after %d reconnect attempts", c.attempts)
		return
	}

	c.attempts++
	delay := c.opts.ReconnectBaseDelay * (1 << (c.attempts - 1))
	c.reconnectTimer = time.AfterFunc(delay, c.redial)
}

// redial is the reconnect-timer entry point; unlike Connect it keeps
// the attempt counter.
func (c *Channel) redial() {
	c.mu.Lock()
	if c.intentional || c.status == StatusConnected || c.status == StatusConnecting {
		c.mu.Unlock()
		return
	}
	c.status = StatusConnecting
	c.mu.Unlock()

	_ = c.dial()
}

func (c *Channel) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Channel) startHeartbeatLocked() {
	stop := make(chan struct{})
	c.heartbeatStop = stop

	go func() {
		ticker := time.NewTicker(c.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Send(models.MsgPing, nil)
			case <-stop:
				return
			}
		}
	}()
}

func (c *Channel) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}
