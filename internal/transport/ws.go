package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"reuben/internal/common"
	"reuben/internal/exchange"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server wires the exchange to one WebSocket endpoint per asset book plus
// the HTTP state surface.
type Server struct {
	exchange *exchange.Exchange
	router   *mux.Router
	hubs     [common.NumAssets]*hub
	stop     chan struct{}
}

// NewServer builds a Server and registers its routes. Call Run to start
// the per-book hubs before serving traffic.
func NewServer(ex *exchange.Exchange) *Server {
	s := &Server{
		exchange: ex,
		router:   mux.NewRouter(),
		stop:     make(chan struct{}),
	}
	for _, asset := range common.AllAssets() {
		s.hubs[asset] = newHub()
	}
	s.routes()
	return s
}

// Handler returns the CORS-wrapped HTTP handler for net/http.Serve.
func (s *Server) Handler() http.Handler {
	return withCORS(s.router)
}

// Run starts every per-book hub's dispatch loop in its own goroutine and
// returns immediately; the loops exit when Stop is called.
func (s *Server) Run() {
	for _, asset := range common.AllAssets() {
		go s.hubs[asset].run(s.stop)
	}
}

// Stop shuts down every hub's dispatch loop.
func (s *Server) Stop() {
	close(s.stop)
}

func (s *Server) routes() {
	s.router.HandleFunc("/ws/{asset}", s.handleWebSocket)
	s.registerHTTP()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	assetKey := mux.Vars(r)["asset"]
	asset, ok := common.AssetFromKey(assetKey)
	if !ok {
		http.Error(w, "unknown asset", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("transport: upgrade websocket")
		return
	}

	h := s.hubs[asset]
	c := newClient(h, conn)
	h.register <- c

	go c.writePump()
	s.readPump(asset, h, c)
}

// readPump is the per-connection message loop: decode, dispatch by type,
// reply or publish. Grounded on original_source/src/main.cpp's
// run_asset_socket on_message switch over REGISTER/ORDER/CANCEL.
func (s *Server) readPump(asset common.Asset, h *hub, c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming incomingMessage
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.sendJSON(errorMessage("malformed JSON: " + err.Error()))
			continue
		}

		switch incoming.Type {
		case typeRegister:
			s.handleRegister(c, incoming)
		case typeOrder:
			s.handleOrder(asset, h, c, incoming)
		case typeCancel:
			s.handleCancel(asset, h, c, incoming)
		default:
			c.sendJSON(errorMessage("unknown message type"))
		}
	}
}

func (s *Server) handleRegister(c *client, incoming incomingMessage) {
	if _, registered := c.isRegistered(); registered {
		return
	}
	if incoming.UserID == nil {
		c.sendJSON(errorMessage("must include user_id when registering"))
		return
	}
	username := ""
	if incoming.Username != nil {
		username = *incoming.Username
	}

	s.exchange.Register(*incoming.UserID, username)
	c.markRegistered(*incoming.UserID)
	c.sendJSON(outgoingMessage{Type: typeRegister, UserID: *incoming.UserID, Username: username})
}

func (s *Server) handleOrder(asset common.Asset, h *hub, c *client, incoming incomingMessage) {
	userID, registered := c.isRegistered()
	if !registered {
		c.sendJSON(errorMessage("not registered on exchange " + asset.String()))
		return
	}
	if !s.exchange.Accepting() {
		return
	}
	if incoming.Side == nil || incoming.Price == nil || incoming.Volume == nil {
		c.sendJSON(errorMessage("order requires side, price, and volume"))
		return
	}
	side, ok := common.SideFromString(*incoming.Side)
	if !ok {
		c.sendJSON(errorMessage("unknown side: " + *incoming.Side))
		return
	}

	result, err := s.exchange.Book(asset).Place(side, userID, *incoming.Price, *incoming.Volume)
	if err != nil {
		c.sendJSON(errorMessage(err.Error()))
		return
	}

	h.publish(outgoingMessage{Type: typeOrder, Trades: result.Trades, UnmatchedOrder: result.Unmatched})
}

func (s *Server) handleCancel(asset common.Asset, h *hub, c *client, incoming incomingMessage) {
	if _, registered := c.isRegistered(); !registered {
		c.sendJSON(errorMessage("not registered on exchange " + asset.String()))
		return
	}
	if !s.exchange.Accepting() {
		return
	}
	if incoming.OrderID == nil {
		c.sendJSON(errorMessage("must include order_id when canceling an order"))
		return
	}

	if err := s.exchange.Book(asset).Cancel(*incoming.OrderID); err != nil {
		c.sendJSON(errorMessage(err.Error()))
		return
	}

	h.publish(outgoingMessage{Type: typeCancel, OrderID: *incoming.OrderID})
}
