package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/sensor"
	"github.com/NotCoffee418/han_reader/pkg/types"
	"github.com/gorilla/websocket"
)

const (
	clientBuffer = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboards on the LAN
	},
}

// hub broadcasts readings to websocket clients. Publish never blocks the
// poll loop: every client has its own queue and slow clients lose messages.
type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]bool)}
}

func (h *hub) Publish(reading *types.SensorReading) error {
	msg := reading.ToJsonBytes()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Debugf("Dropping reading for slow client %s", c.conn.RemoteAddr())
		}
	}
	return nil
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// serveWs upgrades the request, sends the current state of every sensor and
// then streams new readings until the client goes away.
func (h *hub) serveWs(state *sensor.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("WebSocket upgrade error")
			return
		}

		c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
		for _, reading := range state.All() {
			c.send <- reading.ToJsonBytes()
			if len(c.send) == cap(c.send) {
				break
			}
		}
		h.add(c)
		go c.writePump()

		// Keep connection alive
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.WithError(err).Debug("WebSocket write failed")
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// closeAll disconnects every client, used on shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
