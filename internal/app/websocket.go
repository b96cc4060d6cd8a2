package app

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// streamHub fans telemetry out to connected websocket clients.
type streamHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	latest  []byte
}

func newStreamHub() *streamHub {
	return &streamHub{clients: make(map[*websocket.Conn]struct{})}
}

// broadcast sends msg to every client and drops the ones that fail.
func (h *streamHub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = msg
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("web: websocket write error: %v", err)
			delete(h.clients, c)
			c.Close()
		}
	}
}

func (h *streamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	if h.latest != nil {
		if err := conn.WriteMessage(websocket.TextMessage, h.latest); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error: %v", err)
			}
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}
