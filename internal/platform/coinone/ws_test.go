package coinone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

type streamServer struct {
	srv      *httptest.Server
	commands chan WSCommand
	conns    chan *websocket.Conn
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	s := &streamServer{
		commands: make(chan WSCommand, 16),
		conns:    make(chan *websocket.Conn, 4),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd WSCommand
			if json.Unmarshal(data, &cmd) == nil {
				s.commands <- cmd
			}
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *streamServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func recvCommand(t *testing.T, ch <-chan WSCommand) WSCommand {
	t.Helper()
	select {
	case cmd := <-ch:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
		return WSCommand{}
	}
}

func recvConn(t *testing.T, ch <-chan *websocket.Conn) *websocket.Conn {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

func TestWSSubscribeReplayAndDispatch(t *testing.T) {
	s := newStreamServer(t)
	c := NewWSClient(WSOptions{URL: s.url(), ReconnectInterval: 20 * time.Millisecond})

	require.NoError(t, c.Subscribe(ChannelOrderbook, "BTC"))
	assert.Equal(t, StateDisconnected, c.State())

	books := make(chan domain.OrderbookSnapshot, 1)
	c.OnOrderbook(func(s domain.OrderbookSnapshot) { books <- s })
	trades := make(chan TradeEvent, 1)
	c.OnTrade(func(e TradeEvent) { trades <- e })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	conn := recvConn(t, s.conns)
	cmd := recvCommand(t, s.commands)
	assert.Equal(t, WSCommand{Type: "subscribe", Channel: ChannelOrderbook, Pairs: []string{"BTC"}}, cmd)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(
		`{"channel":"orderbook","target_currency":"btc","quote_currency":"krw",
		  "bids":[{"price":"100","qty":"1"}],"asks":[{"price":"101","qty":"2"}],"timestamp":5}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(
		`{"channel":"trades","target_currency":"BTC","quote_currency":"KRW","price":"100.5","qty":"0.1","is_seller_maker":true,"timestamp":6}`)))

	select {
	case b := <-books:
		assert.Equal(t, "BTC/KRW", b.Symbol())
		assert.Equal(t, 2.0, b.Asks[0].Qty)
	case <-time.After(2 * time.Second):
		t.Fatal("no orderbook dispatched")
	}
	select {
	case e := <-trades:
		assert.Equal(t, 100.5, e.Trade.Price)
		assert.True(t, e.Trade.IsSellerMaker)
	case <-time.After(2 * time.Second):
		t.Fatal("no trade dispatched")
	}

	require.NoError(t, c.Subscribe(ChannelTrades, "ETH"))
	cmd = recvCommand(t, s.commands)
	assert.Equal(t, ChannelTrades, cmd.Channel)

	require.NoError(t, c.Unsubscribe(ChannelTrades, "ETH"))
	cmd = recvCommand(t, s.commands)
	assert.Equal(t, "unsubscribe", cmd.Type)
	assert.NotContains(t, c.Subscriptions(), ChannelTrades)

	require.NoError(t, c.Close())
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.Equal(t, StateDisconnected, c.State())
}

func TestWSReconnectStateMachine(t *testing.T) {
	s := newStreamServer(t)
	c := NewWSClient(WSOptions{URL: s.url(), ReconnectInterval: 20 * time.Millisecond})
	require.NoError(t, c.Subscribe(ChannelTicker, "BTC"))

	var mu sync.Mutex
	var transitions []State
	c.OnStateChange(func(_, to State) {
		mu.Lock()
		transitions = append(transitions, to)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	first := recvConn(t, s.conns)
	recvCommand(t, s.commands)
	first.Close()

	recvConn(t, s.conns)
	cmd := recvCommand(t, s.commands)
	assert.Equal(t, ChannelTicker, cmd.Channel, "subscription replayed after reconnect")

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(transitions), 5)
	assert.Equal(t, []State{StateConnecting, StateConnected, StateReconnectPending, StateConnecting, StateConnected}, transitions[:5])
	assert.Equal(t, StateDisconnected, transitions[len(transitions)-1])
}

func TestWSNoReconnect(t *testing.T) {
	s := newStreamServer(t)
	c := NewWSClient(WSOptions{URL: s.url(), NoReconnect: true})

	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(context.Background()) }()

	conn := recvConn(t, s.conns)
	conn.Close()

	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, domain.ErrWSDisconnect)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, StateDisconnected, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "reconnect_pending", StateReconnectPending.String())
	assert.Equal(t, "connected", StateConnected.String())
}
