// Package transport exposes the exchange over WebSocket and HTTP: one
// gorilla/websocket endpoint per asset book, a per-book broadcast hub, and
// a gorilla/mux + rs/cors HTTP surface for state and leaderboard queries.
package transport

import "reuben/internal/common"

// messageType names the wire message kinds, matching
// original_source/src/main.cpp's REGISTER/ORDER/CANCEL/ERROR enum.
type messageType string

const (
	typeRegister messageType = "REGISTER"
	typeOrder    messageType = "ORDER"
	typeCancel   messageType = "CANCEL"
	typeError    messageType = "ERROR"
)

// incomingMessage is the wire shape of a client-to-server message. Fields
// are pointers so a missing field is distinguishable from a zero value,
// mirroring the original's std::optional incoming fields.
type incomingMessage struct {
	Type     messageType `json:"type"`
	UserID   *uint32     `json:"user_id,omitempty"`
	Username *string     `json:"username,omitempty"`
	Side     *string     `json:"side,omitempty"`
	Price    *uint32     `json:"price,omitempty"`
	Volume   *uint32     `json:"volume,omitempty"`
	OrderID  *uint32     `json:"order_id,omitempty"`
}

// outgoingMessage is the wire shape of a server-to-client message.
type outgoingMessage struct {
	Type           messageType    `json:"type"`
	UserID         uint32         `json:"user_id,omitempty"`
	Username       string         `json:"username,omitempty"`
	Trades         []common.Trade `json:"trades,omitempty"`
	UnmatchedOrder *common.Order  `json:"unmatched_order,omitempty"`
	OrderID        uint32         `json:"order_id,omitempty"`
	Error          string         `json:"error,omitempty"`
}

func errorMessage(msg string) outgoingMessage {
	return outgoingMessage{Type: typeError, Error: msg}
}
