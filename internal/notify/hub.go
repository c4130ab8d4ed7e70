// Package notify pushes server events to browser sessions over WebSockets.
// Connections are grouped by the client id the browser announces, so a
// background task can address one user's open tabs.
package notify

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message is the envelope written to sockets.
type Message struct {
	Type    string `json:"type"`
	TaskID  string `json:"taskId,omitempty"`
	Content string `json:"content,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan Message
	closed bool
}

// offer queues msg without blocking. open is false once the client has been
// closed.
func (c *client) offer(msg Message) (queued, open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.send <- msg:
		return true, true
	default:
		return false, true
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks open sockets by client id.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.WithField("component", "notify"),
	}
}

// originChecker accepts requests without an Origin header, any origin when
// the list is empty or holds "*", and otherwise only listed origins.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, candidate := range allowed {
			if candidate == "*" || strings.EqualFold(candidate, origin) {
				return true
			}
		}
		return false
	}
}

// Register mounts the socket endpoint on r.
func (h *Hub) Register(r chi.Router) {
	r.Get("/ws", h.ServeHTTP)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.URL.Query().Get("clientId"))
	if clientID == "" {
		http.Error(w, "clientId is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{id: clientID, conn: conn, send: make(chan Message, sendBuffer)}
	h.add(c)
	h.logger.WithField("client_id", clientID).Debug("websocket connected")

	go h.writePump(c)
	h.readPump(c)
}

// Send queues msg for every socket of clientID and returns how many sockets
// accepted it. A socket whose buffer is full is dropped.
func (h *Hub) Send(clientID string, msg Message) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[clientID]))
	for c := range h.clients[clientID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		queued, open := c.offer(msg)
		switch {
		case queued:
			delivered++
		case open:
			h.logger.WithField("client_id", clientID).Warn("websocket send buffer full, dropping connection")
			h.remove(c)
		}
	}
	return delivered
}

// Connected reports how many sockets clientID has open.
func (h *Hub) Connected(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[clientID])
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.id]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.id] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.id]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.id)
		}
	}
	h.mu.Unlock()
	c.close()
}

// readPump discards inbound frames; it exists to process control messages
// and notice when the peer goes away.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		h.logger.WithField("client_id", c.id).Debug("websocket closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).WithField("client_id", c.id).Warn("websocket read failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.WithError(err).WithField("client_id", c.id).Warn("websocket write failed")
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
