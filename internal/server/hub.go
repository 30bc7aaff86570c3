package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 5 * time.Second

// Message is the JSON payload pushed to websocket clients.
type Message struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// Hub tracks websocket clients and fans out messages to them.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	logf    func(format string, args ...any)
}

// client serializes writes to one connection; gorilla allows a single
// concurrent writer per conn.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func NewHub(logf func(format string, args ...any)) *Hub {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Hub{clients: make(map[string]*client), logf: logf}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("ws upgrade: %v", err)
		return
	}
	id := uuid.NewString()
	c := &client{conn: conn}
	if !h.add(id, c) {
		conn.Close()
		return
	}
	defer h.remove(id)

	data, _ := json.Marshal(Message{Type: "hello", ID: id})
	if err := c.send(data); err != nil {
		h.logf("ws %s: hello: %v", id, err)
		return
	}
	// Clients never send anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(id string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[id] = c
	h.logf("ws client %s connected (total: %d)", id, len(h.clients))
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	c.conn.Close()
	h.logf("ws client %s disconnected (total: %d)", id, len(h.clients))
}

// Broadcast writes m to every client concurrently, so one slow client only
// delays itself. Clients that fail the write are dropped.
func (h *Hub) Broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.logf("broadcast %s: %v", m.Type, err)
		return
	}
	h.mu.Lock()
	targets := make(map[string]*client, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for id, c := range targets {
		wg.Add(1)
		go func(id string, c *client) {
			defer wg.Done()
			if err := c.send(data); err != nil {
				h.logf("ws client %s: write: %v", id, err)
				h.remove(id)
			}
		}(id, c)
	}
	wg.Wait()
	h.logf("broadcast %s to %d clients", m.Type, len(targets))
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		// WriteControl may run alongside a pending data write.
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), time.Now().Add(writeWait))
		c.conn.Close()
		delete(h.clients, id)
	}
}
