package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains access code -> set of connections and broadcasts game
// events. Session state itself lives in the game directory; the hub only
// moves messages. An optional Redis pub/sub bridge fans events out to other
// instances.
type Hub struct {
	// access code -> map[connectionID]*Client
	rooms  map[string]map[string]*Client
	subs   map[string]func() // cancel Redis subscription per room
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// Publisher publishes a room event for cross-instance broadcast.
type Publisher interface {
	PublishSessionEvent(code, event string, payload []byte) error
}

// Subscriber subscribes to a room's channel and invokes handler for
// incoming events.
type Subscriber interface {
	SubscribeSession(code string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a WebSocket hub. pub and sub may be nil to run without
// Redis fan-out.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		subs:   make(map[string]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to a session room, subscribing the room's Redis
// channel when it is the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.Code] == nil {
		h.rooms[c.Code] = make(map[string]*Client)
		if h.sub != nil {
			code := c.Code
			cancel, err := h.sub.SubscribeSession(code, func(event string, payload []byte) {
				h.Broadcast(code, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[code] = cancel
			}
		}
	}
	h.rooms[c.Code][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined room", zap.String("connection_id", c.ID), zap.String("code", c.Code))
}

// Unregister removes a client from its room, cancelling the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.Code]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.Code)
			if cancel, ok := h.subs[c.Code]; ok {
				cancel()
				delete(h.subs, c.Code)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left room", zap.String("connection_id", c.ID), zap.String("code", c.Code))
}

// Broadcast sends a message to all clients in a session room (local only).
func (h *Hub) Broadcast(code, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.rooms[code]
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastAndPublish sends to local clients and publishes to Redis for
// other instances.
func (h *Hub) BroadcastAndPublish(code, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.Broadcast(code, event, json.RawMessage(data))
	if h.pub != nil {
		_ = h.pub.PublishSessionEvent(code, event, data)
	}
}

// SendToClient sends a message to a single connection in a room.
func (h *Hub) SendToClient(code, connectionID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	c, ok := h.rooms[code][connectionID]
	h.mu.RUnlock()
	if !ok || c == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// RoomCount returns the number of connected clients in a session room.
func (h *Hub) RoomCount(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}
