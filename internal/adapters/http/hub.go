package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// streamClient is one websocket connection of a user.
type streamClient struct {
	userID domain.UserID
	conn   *websocket.Conn
	send   chan []byte
}

// Hub pushes outbound messages to users connected over websocket. Users
// without a live connection get their messages queued in the fallback.
type Hub struct {
	mu       sync.RWMutex
	clients  map[domain.UserID]map[*streamClient]struct{}
	fallback domain.Notifier
}

func NewHub(fallback domain.Notifier) *Hub {
	return &Hub{
		clients:  make(map[domain.UserID]map[*streamClient]struct{}),
		fallback: fallback,
	}
}

// SendPrompt implements domain.Notifier.
func (h *Hub) SendPrompt(ctx context.Context, msg domain.OutboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}

	delivered := false
	h.mu.RLock()
	for c := range h.clients[msg.UserID] {
		select {
		case c.send <- payload:
			delivered = true
		default:
			// Slow client; the message goes to the fallback instead.
		}
	}
	h.mu.RUnlock()

	if delivered {
		return nil
	}
	return h.fallback.SendPrompt(ctx, msg)
}

// Connected reports whether the user has at least one live connection.
func (h *Hub) Connected(userID domain.UserID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) register(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*streamClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[c.userID]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			if len(clients) == 0 {
				delete(h.clients, c.userID)
			}
		}
	}
}

// writePump forwards queued payloads to the connection and keeps it alive.
func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump hands every text frame to onText until the connection closes.
func (c *streamClient) readPump(ctx context.Context, onText func(ctx context.Context, text string)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				observability.LoggerFromContext(ctx).Warn("stream closed unexpectedly", "error", err)
			}
			return
		}
		if kind == websocket.TextMessage {
			onText(ctx, string(data))
		}
	}
}
