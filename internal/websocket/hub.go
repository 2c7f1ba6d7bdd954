package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/pkg/course/stream"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans stream events out to the presentation clients watching each
// session. It implements stream.Sink. With Redis configured, events are also
// published cross-instance so a client may watch a session driven elsewhere.
type Hub struct {
	// Registered clients map: SessionID -> List of Clients (multi-viewer)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance fan-out (optional)
	rdb *redis.Client

	// Identifies this instance on the Redis channel so self-published
	// messages are not delivered to local clients a second time.
	instanceID string

	// Invoked when a session loses its last local viewer, so the stream
	// manager can flag the reconciler closed.
	onSessionEmpty func(sessionID string)

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// OnSessionEmpty registers the empty-session callback. Must be set before Run.
func (h *Hub) OnSessionEmpty(fn func(sessionID string)) {
	h.onSessionEmpty = fn
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			empty := false
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					empty = true
					h.logger.Info("Hub", "Session has no viewers left", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
			if empty && h.onSessionEmpty != nil {
				h.onSessionEmpty(client.SessionID)
			}
		}
	}
}

// Emit implements stream.Sink: serialize once, push to every local viewer of
// the session, then fan out via Redis for other instances.
func (h *Hub) Emit(sessionID string, event stream.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("Hub", "Failed to marshal stream event", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	clients := h.clients[sessionID]
	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
	h.mu.RUnlock()

	if h.rdb != nil {
		payload, _ := json.Marshal(redisEnvelope{
			Origin:    h.instanceID,
			SessionID: sessionID,
			Message:   json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), "course_stream_events", payload)
	}
}

// HasViewers reports whether any local client watches the session.
func (h *Hub) HasViewers(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID]) > 0
}

// redisEnvelope wraps a stream event on the cross-instance channel.
type redisEnvelope struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "course_stream_events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.handleRedisMessage([]byte(msg.Payload))
	}
}

// handleRedisMessage delivers a cross-instance event to local viewers.
// Self-published messages are dropped: Emit already delivered them locally,
// and finalized inserts must reach each viewer exactly once.
func (h *Hub) handleRedisMessage(raw []byte) {
	var payload redisEnvelope
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("Redis msg parse error: %v", err)
		return
	}
	if payload.Origin == h.instanceID {
		return
	}

	h.mu.RLock()
	clients, ok := h.clients[payload.SessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	for _, client := range clients {
		select {
		case client.Send <- payload.Message:
		default:
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}
