package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"api-chatbot/internal/metrics"
	"api-chatbot/internal/models"
)

const (
	channelPrefix = "history_updates:"
	writeWait     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	id      uuid.UUID
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub pushes history events to every websocket a user has open. With a
// Redis client, events travel over pub/sub so any relay instance can reach
// the user's sockets; without one they are delivered in-process.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[uuid.UUID]*client
	redisClient *redis.Client
	cancelFuncs map[string]context.CancelFunc
	logger      zerolog.Logger
}

func NewHub(redisClient *redis.Client, logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[uuid.UUID]*client),
		redisClient: redisClient,
		cancelFuncs: make(map[string]context.CancelFunc),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// HandleWebSocket serves GET /ws?userId=...
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "userId is required"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	c := &client{id: uuid.New(), conn: conn}
	h.registerConnection(userID, c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(userID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish implements services.HistoryPublisher.
func (h *Hub) Publish(ctx context.Context, event models.HistoryEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	if h.redisClient == nil {
		h.broadcast(event.UserID, data)
		return
	}

	if err := h.redisClient.Publish(ctx, channelPrefix+event.UserID, data).Err(); err != nil {
		h.logger.Warn().Err(err).Str("user_id", event.UserID).Str("type", event.Type).Msg("failed to publish history event")
		h.broadcast(event.UserID, data)
	}
}

// ConnectionCount reports the open sockets of a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// Close drops every connection and stops all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.connections {
		for _, c := range conns {
			c.conn.Close()
			metrics.WebsocketConnections.Dec()
		}
		delete(h.connections, userID)
	}
	for userID, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, userID)
	}
}

func (h *Hub) registerConnection(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[userID] == nil {
		h.connections[userID] = make(map[uuid.UUID]*client)
	}
	h.connections[userID][c.id] = c
	metrics.WebsocketConnections.Inc()

	// Start pub/sub subscription if this is the first connection for this user
	if h.redisClient != nil && len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribeToPubSub(ctx, userID)
	}

	h.logger.Debug().Str("user_id", userID).Str("conn_id", c.id.String()).
		Int("total", len(h.connections[userID])).Msg("websocket connected")
}

func (h *Hub) unregisterConnection(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns, ok := h.connections[userID]
	if !ok {
		return
	}
	if _, ok := conns[c.id]; !ok {
		return
	}
	delete(conns, c.id)
	metrics.WebsocketConnections.Dec()

	// If no more connections, cancel pub/sub
	if len(conns) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	h.logger.Debug().Str("user_id", userID).Str("conn_id", c.id.String()).Msg("websocket disconnected")
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID string) {
	pubsub := h.redisClient.Subscribe(ctx, channelPrefix+userID)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(userID string, data []byte) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.connections[userID]))
	for _, c := range h.connections[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.logger.Debug().Err(err).Str("user_id", userID).Msg("websocket write failed")
		}
	}
}
