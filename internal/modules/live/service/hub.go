package service

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"backtester/internal/models"
	"backtester/pkg/logger"
)

const (
	closeAuthRequired = 4001
	writeWait         = 5 * time.Second
	clientBuffer      = 64
)

// Hub: websocket-рассылка решений дашбордам. Сообщения клиентов пересылаются остальным клиентам.
type Hub struct {
	token    string
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// token пустой: без авторизации.
func NewHub(token string) *Hub {
	return &Hub{
		token: token,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

func (h *Hub) Name() string { return "ws" }

func (h *Hub) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	got := r.URL.Query().Get("token")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[WS] upgrade %s: %v", r.RemoteAddr, err)
		return
	}

	if !h.authorized(r) {
		logger.Warn("[WS] rejecting connection without valid token from %s", r.RemoteAddr)
		msg := websocket.FormatCloseMessage(closeAuthRequired, "Authentication required")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Info("[WS] client connected: %s", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *wsClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		logger.Info("[WS] client disconnected: %s", c.conn.RemoteAddr())
	}()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		h.broadcast(msg, c)
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// broadcast всем, кроме sender. Медленный клиент с полным буфером отключается.
func (h *Hub) broadcast(msg []byte, sender *wsClient) {
	h.mu.RLock()
	var slow []*wsClient
	for c := range h.clients {
		if c == sender {
			continue
		}
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("[WS] dropping slow client %s", c.conn.RemoteAddr())
		h.remove(c)
	}
}

type wsEnvelope struct {
	Type string          `json:"type"`
	Data models.Decision `json:"data"`
}

func (h *Hub) Publish(_ context.Context, d models.Decision) error {
	msg, err := sonic.Marshal(wsEnvelope{Type: "decision", Data: d})
	if err != nil {
		return err
	}
	h.broadcast(msg, nil)
	return nil
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close отключает всех клиентов.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
