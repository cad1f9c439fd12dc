package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer     = 64
	maxMessageSize = 4096
)

// Message is the envelope pushed to websocket clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Config tunes connection keep-alive.
type Config struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Hub fans messages out to every live connection of a user.
type Hub struct {
	cfg     Config
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

type client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// NewHub creates an empty hub.
func NewHub(cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Hub{cfg: cfg, logger: logger, clients: make(map[string]map[*client]struct{})}
}

// Upgrader builds the websocket upgrader. Origin checks are delegated to the CORS layer.
func Upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Publish queues msg for every connection of userID. Slow connections are dropped.
func (h *Hub) Publish(userID string, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("failed to encode realtime message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("dropping slow websocket client", zap.String("user_id", userID))
			h.remove(c)
		}
	}
}

// Connections returns the number of live connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve registers conn for userID and blocks until the connection closes or ctx is done.
func (h *Hub) Serve(ctx context.Context, userID string, conn *websocket.Conn) {
	c := &client{hub: h, userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	h.logger.Debug("websocket client connected", zap.String("user_id", userID))

	done := make(chan struct{})
	go func() {
		c.readPump()
		close(done)
	}()
	c.writePump(ctx, done)
	h.remove(c)
	_ = conn.Close()
	h.logger.Debug("websocket client disconnected", zap.String("user_id", userID))
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, present := set[c]; !present {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// readPump discards inbound frames; it exists to process control messages and detect closure.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	pongWait := c.hub.cfg.PingInterval * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected websocket close", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(c.hub.cfg.WriteTimeout))
			return
		case <-done:
			return
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "slow consumer"), time.Now().Add(c.hub.cfg.WriteTimeout))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
				return
			}
		}
	}
}
