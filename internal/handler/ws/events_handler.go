package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pbxconnect-backend/pkg/logger"
	"pbxconnect-backend/pkg/metrics"
)

const (
	pingInterval  = 54 * time.Second
	writeDeadline = 10 * time.Second
)

// Event types pushed to connected softphones
const (
	EventCallRinging       = "call.ringing"
	EventCallAnswered      = "call.answered"
	EventCallEnded         = "call.ended"
	EventRecordingShared   = "recording.shared"
	EventRecordingUnshared = "recording.unshared"
)

// Event is one message pushed to a user's connected clients
type Event struct {
	Type      string            `json:"type"`
	UserID    uuid.UUID         `json:"-"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// EventHub fans call and recording events out to each user's connected
// softphone sessions. Events travel through Redis Pub/Sub so every instance
// behind the load balancer delivers to its own connections.
type EventHub struct {
	// Registered clients per user
	users map[uuid.UUID]map[*eventClient]bool

	// Cancel functions for per-user Redis subscriptions
	subscriptionCancels map[uuid.UUID]context.CancelFunc

	redisClient *redis.Client
	metrics     *metrics.Metrics

	mu sync.RWMutex

	register   chan *eventClient
	unregister chan *eventClient
	broadcast  chan *Event

	maxConnections int
	semaphore      chan struct{}
}

type eventClient struct {
	hub    *EventHub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
}

var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		for _, allowed := range allowedOrigins() {
			if origin == allowed {
				return true
			}
		}
		return false
	},
}

func allowedOrigins() []string {
	raw := os.Getenv("WS_ALLOWED_ORIGINS")
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

// NewEventHub creates a new event hub. The Redis client is optional; without
// one events are delivered to local connections only.
func NewEventHub(redisClient *redis.Client, m *metrics.Metrics) *EventHub {
	maxConns := 1000
	if val := os.Getenv("WS_MAX_CONNECTIONS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			maxConns = n
		}
	}

	hub := &EventHub{
		users:               make(map[uuid.UUID]map[*eventClient]bool),
		subscriptionCancels: make(map[uuid.UUID]context.CancelFunc),
		redisClient:         redisClient,
		metrics:             m,
		register:            make(chan *eventClient),
		unregister:          make(chan *eventClient),
		broadcast:           make(chan *Event, 256),
		maxConnections:      maxConns,
		semaphore:           make(chan struct{}, maxConns),
	}

	go hub.run()

	return hub
}

func (h *EventHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.users[client.userID] == nil {
				h.users[client.userID] = make(map[*eventClient]bool)

				if h.redisClient != nil {
					ctx, cancel := context.WithCancel(context.Background())
					h.subscriptionCancels[client.userID] = cancel
					go h.subscribeToUser(ctx, client.userID)
				}
			}
			h.users[client.userID][client] = true
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.IncWebsocketConnections()
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.users[client.userID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)

					if len(clients) == 0 {
						if cancel, ok := h.subscriptionCancels[client.userID]; ok {
							cancel()
							delete(h.subscriptionCancels, client.userID)
						}
						delete(h.users, client.userID)
					}

					if h.metrics != nil {
						h.metrics.DecWebsocketConnections()
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.users[event.UserID]; ok {
				payload, _ := json.Marshal(event)
				for client := range clients {
					select {
					case client.send <- payload:
					default:
						close(client.send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func userChannel(userID uuid.UUID) string {
	return fmt.Sprintf("voip:events:%s", userID)
}

func (h *EventHub) subscribeToUser(ctx context.Context, userID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, userChannel(userID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Error("failed to subscribe to event channel",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if msg == nil {
				continue
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warn("failed to unmarshal event payload",
					zap.String("user_id", userID.String()),
					zap.Error(err))
				continue
			}
			event.UserID = userID
			h.broadcast <- &event
		}
	}
}

// Publish delivers an event to every connected session of one user. Delivery
// is fire and forget: publish failures are logged and swallowed.
func (h *EventHub) Publish(ctx context.Context, userID uuid.UUID, event *Event) {
	event.UserID = userID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if h.redisClient == nil {
		h.broadcast <- event
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal event", zap.Error(err))
		return
	}
	if err := h.redisClient.Publish(ctx, userChannel(userID), payload).Err(); err != nil {
		logger.Warn("failed to publish event, delivering locally",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		h.broadcast <- event
	}
}

// ServeWS upgrades the connection and streams the user's events
func (h *EventHub) ServeWS(c *gin.Context) {
	select {
	case h.semaphore <- struct{}{}:
		defer func() {
			<-h.semaphore
		}()
	default:
		logger.Warn("websocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}

	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return
	}

	conn, err := eventUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	client := &eventClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}

	h.register <- client

	go client.writePump()
	client.readPump()
}

// readPump drains the connection. Clients do not send application messages;
// reading is only needed to process pongs and detect closure.
func (c *eventClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + writeDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + writeDeadline))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("websocket connection closed",
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			return
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
