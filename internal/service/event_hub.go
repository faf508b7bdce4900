package service

import (
	"context"
	"edutheo_backend/pkg/logger"
	"edutheo_backend/pkg/monitoring"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	onlineTTL      = 2 * time.Minute

	eventsChannel = "practice_events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is one message on the practice event stream. UserID scopes
// delivery; zero means every connected client.
type Event struct {
	Type   string      `json:"type"`
	UserID uint        `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

// EventClient is one websocket connection. A user may hold several at
// once (multiple tabs), so clients are keyed by connection id.
type EventClient struct {
	Hub     *EventHub
	Conn    *websocket.Conn
	Send    chan []byte
	ConnID  string
	UserID  uint
	Limiter *rate.Limiter
}

func (c *EventClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		// The event stream is server-to-client; inbound frames only
		// keep the connection alive.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}
		if !c.Limiter.Allow() {
			continue
		}
	}
}

func (c *EventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type eventShard struct {
	clients map[string]*EventClient
	mu      sync.RWMutex
}

// EventHub fans practice events out to connected clients. With Redis
// configured, publishes go through a pub/sub channel so every instance
// delivers to its local connections; without it, delivery is local only.
type EventHub struct {
	shards   [shardCount]*eventShard
	Redis    *redis.Client
	ctx      context.Context
	done     chan struct{}
	stopOnce sync.Once
}

func NewEventHub(rdb *redis.Client) *EventHub {
	h := &EventHub{
		Redis: rdb,
		ctx:   context.Background(),
		done:  make(chan struct{}),
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &eventShard{
			clients: make(map[string]*EventClient),
		}
	}
	return h
}

func (h *EventHub) getShard(connID string) *eventShard {
	hasher := fnv.New32a()
	hasher.Write([]byte(connID))
	return h.shards[hasher.Sum32()%shardCount]
}

type eventEnvelope struct {
	TargetUser uint            `json:"targetUser"`
	Payload    json.RawMessage `json:"payload"`
}

// Run owns the pub/sub subscription and the online-status heartbeat; it
// returns when Stop is called.
func (h *EventHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, eventsChannel)
		defer pubsub.Close()
		go func() {
			ch := pubsub.Channel()
			for msg := range ch {
				var env eventEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.deliverLocal(env.TargetUser, env.Payload)
			}
		}()
	}

	heartbeatTicker := time.NewTicker(1 * time.Minute)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-heartbeatTicker.C:
			h.refreshOnlineStatus()
		case <-h.done:
			return
		}
	}
}

func (h *EventHub) Register(c *EventClient) {
	s := h.getShard(c.ConnID)
	s.mu.Lock()
	s.clients[c.ConnID] = c
	s.mu.Unlock()
	h.setOnline(c.UserID)
	monitoring.OnlineConnections.Inc()
}

// Unregister is idempotent: a second call for the same connection finds
// no registered client and leaves the shard untouched.
func (h *EventHub) Unregister(c *EventClient) {
	s := h.getShard(c.ConnID)
	s.mu.Lock()
	if _, ok := s.clients[c.ConnID]; ok {
		delete(s.clients, c.ConnID)
		close(c.Send)
		monitoring.OnlineConnections.Dec()
	}
	s.mu.Unlock()
	h.clearOnline(c.UserID)
}

func (h *EventHub) setOnline(userID uint) {
	if h.Redis == nil {
		return
	}
	if err := h.Redis.Set(h.ctx, onlineKey(userID), "true", onlineTTL).Err(); err != nil {
		logger.Log.Error("Redis online status error", zap.Error(err))
	}
}

func (h *EventHub) clearOnline(userID uint) {
	if h.Redis == nil {
		return
	}
	// Another connection for the same user may still be open.
	if h.hasLocalUser(userID) {
		return
	}
	h.Redis.Del(h.ctx, onlineKey(userID))
}

func (h *EventHub) hasLocalUser(userID uint) bool {
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for _, client := range s.clients {
			if client.UserID == userID {
				s.mu.RUnlock()
				return true
			}
		}
		s.mu.RUnlock()
	}
	return false
}

func (h *EventHub) refreshOnlineStatus() {
	if h.Redis == nil {
		return
	}
	pipe := h.Redis.Pipeline()
	count := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for _, client := range s.clients {
			pipe.Expire(h.ctx, onlineKey(client.UserID), onlineTTL)
			count++
		}
		s.mu.RUnlock()
	}
	if count > 0 {
		pipe.Exec(h.ctx)
		logger.Log.Debug("Refreshed online status", zap.Int("count", count))
	}
}

func onlineKey(userID uint) string {
	return fmt.Sprintf("user:online:%d", userID)
}

// Broadcast publishes an event. Events published in sequence from one
// goroutine reach each client in the same order.
func (h *EventHub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("Event marshal error", zap.Error(err), zap.String("type", event.Type))
		return
	}
	monitoring.EventsBroadcast.WithLabelValues(event.Type).Inc()

	if h.Redis != nil {
		env, _ := json.Marshal(eventEnvelope{TargetUser: event.UserID, Payload: payload})
		if err := h.Redis.Publish(h.ctx, eventsChannel, env).Err(); err == nil {
			return
		}
		logger.Log.Warn("PubSub publish failed, delivering locally", zap.String("type", event.Type))
	}
	h.deliverLocal(event.UserID, payload)
}

// deliverLocal pushes the payload to local connections. A full send
// buffer marks the client dead; it is pruned rather than blocked on.
func (h *EventHub) deliverLocal(targetUser uint, payload []byte) {
	var stale []*EventClient
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.RLock()
		for _, client := range s.clients {
			if targetUser != 0 && client.UserID != targetUser {
				continue
			}
			select {
			case client.Send <- payload:
			default:
				stale = append(stale, client)
			}
		}
		s.mu.RUnlock()
	}

	for _, client := range stale {
		h.prune(client)
	}
}

func (h *EventHub) prune(c *EventClient) {
	s := h.getShard(c.ConnID)
	s.mu.Lock()
	if _, ok := s.clients[c.ConnID]; ok {
		delete(s.clients, c.ConnID)
		close(c.Send)
		monitoring.OnlineConnections.Dec()
	}
	s.mu.Unlock()
	logger.Log.Warn("Pruned slow event client", zap.Uint("userId", c.UserID), zap.String("connId", c.ConnID))
}

func (h *EventHub) IsUserOnline(userID uint) bool {
	if h.hasLocalUser(userID) {
		return true
	}
	if h.Redis == nil {
		return false
	}
	val, err := h.Redis.Get(h.ctx, onlineKey(userID)).Result()
	return err == nil && val == "true"
}

// Stop ends the Run loop, closes every connection and clears online state.
func (h *EventHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })

	logger.Log.Info("EventHub stopping: clearing online status and closing connections...")

	var userIDs []uint
	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for connID, client := range s.clients {
			userIDs = append(userIDs, client.UserID)
			close(client.Send)
			delete(s.clients, connID)
			closed++
		}
		s.mu.Unlock()
	}

	if h.Redis != nil && len(userIDs) > 0 {
		pipe := h.Redis.Pipeline()
		for _, userID := range userIDs {
			pipe.Del(h.ctx, onlineKey(userID))
		}
		pipe.Exec(h.ctx)
	}

	monitoring.OnlineConnections.Set(0)
	logger.Log.Info("EventHub stopped", zap.Int("closedConnections", closed))
}

// ServeEvents upgrades the request and attaches the connection to the hub.
func ServeEvents(hub *EventHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &EventClient{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		ConnID:  uuid.NewString(),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(30), 50),
	}
	hub.Register(client)

	go client.writePump()
	go client.readPump()
}
