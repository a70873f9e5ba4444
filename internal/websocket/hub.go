package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Heartbeat interval for version updates. Clients refetch only when the
	// version moves, at most once per heartbeat.
	versionHeartbeatInterval = 2 * time.Second
)

// VersionSource reports the ledger's mutation counter
type VersionSource interface {
	Version() uint64
}

// OnlineCounter reports how many sessions are active
type OnlineCounter interface {
	Count() int
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts version changes
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	ledger   VersionSource
	sessions OnlineCounter
	interval time.Duration

	mu sync.RWMutex

	// last broadcast state, only touched by Run
	lastVersion uint64
	lastOnline  int
}

// VersionUpdate is the heartbeat message sent to clients
type VersionUpdate struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	Online  int    `json:"online"`
}

// NewHub creates a new WebSocket hub
func NewHub(ledger VersionSource, sessions OnlineCounter) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		ledger:     ledger,
		sessions:   sessions,
		interval:   versionHeartbeatInterval,
	}
}

// Run starts the WebSocket hub and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 WebSocket Hub started")
	defer close(h.done)

	versionTicker := time.NewTicker(h.interval)
	defer versionTicker.Stop()

	h.lastVersion = h.ledger.Version()
	h.lastOnline = h.sessions.Count()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("✅ Client connected (Total: %d)", total)

			h.sendCurrent(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("❌ Client disconnected (Total: %d)", total)

		case <-versionTicker.C:
			h.checkAndBroadcast()

		case <-ctx.Done():
			h.closeAll()
			log.Println("🛑 WebSocket Hub shutting down")
			return
		}
	}
}

// checkAndBroadcast sends a heartbeat to every client when the ledger
// version or the online count moved since the last one
func (h *Hub) checkAndBroadcast() {
	version := h.ledger.Version()
	online := h.sessions.Count()
	if version == h.lastVersion && online == h.lastOnline {
		return
	}
	h.lastVersion = version
	h.lastOnline = online

	message, err := h.message(version, online)
	if err != nil {
		log.Printf("❌ Failed to marshal version update: %v", err)
		return
	}

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			log.Printf("⚠️ Client send buffer full, skipping")
		}
	}
	h.mu.RUnlock()
}

// sendCurrent gives a newly registered client the current state
func (h *Hub) sendCurrent(client *Client) {
	message, err := h.message(h.ledger.Version(), h.sessions.Count())
	if err != nil {
		log.Printf("❌ Failed to marshal initial version: %v", err)
		return
	}

	select {
	case client.send <- message:
	default:
		log.Println("⚠️ Initial version dropped, client buffer full")
	}
}

func (h *Hub) message(version uint64, online int) ([]byte, error) {
	return json.Marshal(VersionUpdate{
		Type:    "VERSION_UPDATE",
		Version: version,
		Online:  online,
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump drains the connection until it closes. Clients are not expected
// to send anything.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket unexpected close: %v", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ServeWS handles a WebSocket connection until the client leaves
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
