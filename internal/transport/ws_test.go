package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"reuben/internal/config"
	"reuben/internal/exchange"
)

func newTestServer(t *testing.T) (*httptest.Server, *exchange.Exchange, func()) {
	t.Helper()
	cfg, err := config.Load("/nonexistent-transport-test-config.yaml")
	require.NoError(t, err)

	ex := exchange.New(*cfg)
	ex.Start()

	srv := NewServer(ex)
	srv.Run()

	httpSrv := httptest.NewServer(srv.Handler())
	return httpSrv, ex, func() {
		srv.Stop()
		httpSrv.Close()
	}
}

func dialAsset(t *testing.T, httpSrv *httptest.Server, assetKey string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws/" + assetKey
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) outgoingMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg outgoingMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestRegisterThenOrderRoundTrip(t *testing.T) {
	httpSrv, _, cleanup := newTestServer(t)
	defer cleanup()

	buyer := dialAsset(t, httpSrv, "dressing")
	defer buyer.Close()
	seller := dialAsset(t, httpSrv, "dressing")
	defer seller.Close()

	userID1 := uint32(1)
	userID2 := uint32(2)
	require.NoError(t, buyer.WriteJSON(incomingMessage{Type: typeRegister, UserID: &userID1}))
	require.NoError(t, seller.WriteJSON(incomingMessage{Type: typeRegister, UserID: &userID2}))

	reg1 := readMessage(t, buyer)
	require.Equal(t, typeRegister, reg1.Type)
	reg2 := readMessage(t, seller)
	require.Equal(t, typeRegister, reg2.Type)

	price, volume := uint32(5), uint32(10)
	side := "SELL"
	require.NoError(t, seller.WriteJSON(incomingMessage{Type: typeOrder, Side: &side, Price: &price, Volume: &volume}))

	restEcho := readMessage(t, buyer)
	require.Equal(t, typeOrder, restEcho.Type)
	require.Nil(t, restEcho.Trades)

	restEchoOnSeller := readMessage(t, seller)
	require.Equal(t, typeOrder, restEchoOnSeller.Type)

	buySide := "BUY"
	require.NoError(t, buyer.WriteJSON(incomingMessage{Type: typeOrder, Side: &buySide, Price: &price, Volume: &volume}))

	tradeMsg := readMessage(t, buyer)
	require.Equal(t, typeOrder, tradeMsg.Type)
	require.Len(t, tradeMsg.Trades, 1)
	require.Equal(t, userID1, tradeMsg.Trades[0].BuyerID)
	require.Equal(t, userID2, tradeMsg.Trades[0].SellerID)
}

func TestOrderBeforeRegisterIsRejected(t *testing.T) {
	httpSrv, _, cleanup := newTestServer(t)
	defer cleanup()

	conn := dialAsset(t, httpSrv, "rye")
	defer conn.Close()

	side, price, volume := "BUY", uint32(5), uint32(1)
	require.NoError(t, conn.WriteJSON(incomingMessage{Type: typeOrder, Side: &side, Price: &price, Volume: &volume}))

	msg := readMessage(t, conn)
	require.Equal(t, typeError, msg.Type)
}

func TestUnknownAssetPathRejectsUpgrade(t *testing.T) {
	httpSrv, _, cleanup := newTestServer(t)
	defer cleanup()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws/pepperoni"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
}
