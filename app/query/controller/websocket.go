package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/defi-space/indexer/pkg/events"
	"github.com/defi-space/indexer/pkg/redis"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: In production, restrict to specific origins
		return true
	},
}

// ClientMessage represents messages sent by websocket clients.
type ClientMessage struct {
	Action  string `json:"action"`  // "subscribe" or "unsubscribe"
	Address string `json:"address"` // Contract address, or "*" for all contracts
}

// ServerMessage represents messages sent to websocket clients.
type ServerMessage struct {
	Type    string      `json:"type"` // "event", "subscribed", "unsubscribed", "error"
	Payload interface{} `json:"payload"`
}

// clientSubscriptions tracks which contract addresses a client follows.
type clientSubscriptions struct {
	mu        sync.RWMutex
	addresses map[string]bool
}

// NewClientSubscriptions creates a new clientSubscriptions tracker.
// Exported for testing.
func NewClientSubscriptions() *clientSubscriptions {
	return &clientSubscriptions{
		addresses: make(map[string]bool),
	}
}

// Subscribe adds a contract address to the subscription list.
func (cs *clientSubscriptions) Subscribe(address string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.addresses[address] = true
}

// Unsubscribe removes a contract address from the subscription list.
func (cs *clientSubscriptions) Unsubscribe(address string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.addresses, address)
}

// IsSubscribed checks if an address is subscribed. Wildcard (*) matches all.
func (cs *clientSubscriptions) IsSubscribed(address string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.addresses["*"] {
		return true
	}
	return cs.addresses[address]
}

// HandleWebSocket upgrades the connection and streams projected events.
//
// Protocol:
// Client sends: {"action": "subscribe", "address": "0xabc..."}  // one contract
// Client sends: {"action": "subscribe", "address": "*"}         // all contracts
// Client sends: {"action": "unsubscribe", "address": "0xabc..."}
//
// Server sends:
// - {"type": "event", "payload": {...}}                 // projected event envelope
// - {"type": "subscribed", "payload": {"address": ...}}
// - {"type": "unsubscribed", "payload": {"address": ...}}
// - {"type": "error", "payload": {"message": "..."}}
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if c.App.RedisClient == nil {
		http.Error(w, "Real-time events not available (Redis disabled)", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.App.Logger.Error("Failed to close websocket connection", zap.Error(err))
		}
	}()

	c.App.Logger.Info("Websocket client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	subs := NewClientSubscriptions()
	send := make(chan ServerMessage, 256)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer c.recoverWS(cancel, r.RemoteAddr, "redis subscriber")
		c.forwardProjectedEvents(ctx, send, subs)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer c.recoverWS(cancel, r.RemoteAddr, "ping ticker")
		c.sendPings(ctx, conn)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer c.recoverWS(cancel, r.RemoteAddr, "message writer")
		c.writeMessages(conn, cancel, send)
	}()

	// Blocks until the connection closes.
	c.readClientMessages(ctx, conn, cancel, subs, send)

	close(send)
	wg.Wait()

	c.App.Logger.Info("Websocket client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// recoverWS logs a goroutine panic and tears the connection down.
func (c *Controller) recoverWS(cancel context.CancelFunc, remoteAddr, where string) {
	if rec := recover(); rec != nil {
		c.App.Logger.Error("Panic in websocket goroutine",
			zap.String("goroutine", where),
			zap.Any("panic", rec),
			zap.String("stack", string(debug.Stack())),
			zap.String("remote_addr", remoteAddr))
		cancel()
	}
}

// forwardProjectedEvents subscribes to the projected-events channel and
// forwards envelopes matching the client's subscriptions.
func (c *Controller) forwardProjectedEvents(ctx context.Context, send chan<- ServerMessage, subs *clientSubscriptions) {
	pubsub := c.App.RedisClient.Subscribe(ctx, redis.ProjectedEventsChannel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			c.App.Logger.Error("Error closing Redis subscription", zap.Error(err))
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				c.App.Logger.Warn("Projected events channel closed")
				return
			}

			var env events.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				c.App.Logger.Error("Failed to parse projected event", zap.Error(err))
				continue
			}

			if !subs.IsSubscribed(env.Meta.Address) {
				continue
			}

			select {
			case send <- ServerMessage{Type: "event", Payload: env}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// sendPings sends periodic websocket ping frames to keep the connection alive.
func (c *Controller) sendPings(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				c.App.Logger.Error("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// writeMessages writes messages from the send channel to the connection.
// Cancelling on exit unblocks anyone still enqueueing.
func (c *Controller) writeMessages(conn *websocket.Conn, cancel context.CancelFunc, send <-chan ServerMessage) {
	defer cancel()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			c.App.Logger.Error("Failed to write websocket message", zap.Error(err))
			return
		}
	}
}

// enqueue hands a message to the writer, giving up when the connection is
// already tearing down. Reports whether the message was queued.
func enqueue(ctx context.Context, send chan<- ServerMessage, msg ServerMessage) bool {
	select {
	case send <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// readClientMessages handles subscription requests and detects closure.
func (c *Controller) readClientMessages(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, subs *clientSubscriptions, send chan<- ServerMessage) {
	if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.App.Logger.Error("Failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.App.Logger.Error("Websocket read error", zap.Error(err))
				}
				cancel()
				return
			}

			if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
				c.App.Logger.Error("Failed to reset read deadline", zap.Error(err))
				return
			}

			switch msg.Action {
			case "subscribe":
				if msg.Address == "" {
					enqueue(ctx, send, ServerMessage{Type: "error", Payload: map[string]string{"message": "address is required"}})
					continue
				}
				subs.Subscribe(msg.Address)
				enqueue(ctx, send, ServerMessage{Type: "subscribed", Payload: map[string]string{"address": msg.Address}})

			case "unsubscribe":
				if msg.Address == "" {
					enqueue(ctx, send, ServerMessage{Type: "error", Payload: map[string]string{"message": "address is required"}})
					continue
				}
				subs.Unsubscribe(msg.Address)
				enqueue(ctx, send, ServerMessage{Type: "unsubscribed", Payload: map[string]string{"address": msg.Address}})

			default:
				enqueue(ctx, send, ServerMessage{Type: "error", Payload: map[string]string{"message": "unknown action: " + msg.Action}})
			}
		}
	}
}
