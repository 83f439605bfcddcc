package transport

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// hub fans every accepted ORDER/CANCEL result out to every client
// subscribed to one asset book, mirroring the original's
// app->publish(DEFAULT_TOPIC, ...) against a single per-asset socket.
// Grounded on uhyunpark-hyperlicked/pkg/api/websocket.go's Hub/Client
// pattern.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	register   chan *client
	unregister chan *client
	broadcast  chan outgoingMessage
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outgoingMessage, 256),
	}
}

// run drains the hub's channels until stop is closed. One instance runs
// per asset book for the lifetime of the server.
func (h *hub) run(stop <-chan struct{}) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			log.Debug().Str("conn_id", c.connID.String()).Msg("transport: client connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			log.Debug().Str("conn_id", c.connID.String()).Msg("transport: client disconnected")
		case msg := <-h.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Msg("transport: encode broadcast message")
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		case <-stop:
			return
		}
	}
}

func (h *hub) publish(msg outgoingMessage) {
	h.broadcast <- msg
}

// client is one WebSocket connection's read/write pumps plus the
// registration state the original tracked in SocketData. connID
// identifies the connection itself (for logging/debugging), separate
// from the user_id it registers with, since one user may reconnect.
type client struct {
	hub    *hub
	conn   *websocket.Conn
	connID uuid.UUID
	send   chan []byte

	mu         sync.Mutex
	registered bool
	userID     uint32
}

func newClient(h *hub, conn *websocket.Conn) *client {
	return &client{hub: h, conn: conn, connID: uuid.New(), send: make(chan []byte, 32)}
}

func (c *client) isRegistered() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.registered
}

func (c *client) markRegistered(userID uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return false
	}
	c.registered = true
	c.userID = userID
	return true
}

func (c *client) sendJSON(msg outgoingMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("transport: encode direct message")
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Warn().Msg("transport: client send buffer full, dropping message")
	}
}

// writePump relays queued messages and periodic pings to the socket.
// Grounded on uhyunpark-hyperlicked/pkg/api/websocket.go's writePump.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
