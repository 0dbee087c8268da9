package coinone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/alanyoungcy/coinonebot/internal/numeric"
)

const (
	// DefaultWSURL is the Coinone streaming endpoint.
	DefaultWSURL = "wss://stream.coinone.co.kr"

	// DefaultReconnectInterval is the fixed wait between reconnect attempts.
	DefaultReconnectInterval = 5 * time.Second

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Channel is a stream channel name.
type Channel string

const (
	ChannelTicker    Channel = "ticker"
	ChannelOrderbook Channel = "orderbook"
	ChannelTrades    Channel = "trades"
	ChannelChart     Channel = "chart"
)

// State is the connection state of a WSClient.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnectPending
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectPending:
		return "reconnect_pending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TradeEvent is one streamed trade with its pair.
type TradeEvent struct {
	Target string
	Quote  string
	Trade  domain.Trade
}

// Symbol returns the event's pair as "TARGET/QUOTE".
func (e TradeEvent) Symbol() string { return domain.Symbol(e.Target, e.Quote) }

type (
	TickerHandler      func(domain.Ticker)
	OrderbookHandler   func(domain.OrderbookSnapshot)
	TradeHandler       func(TradeEvent)
	StateChangeHandler func(from, to State)
)

// WSCommand is a subscribe or unsubscribe request.
type WSCommand struct {
	Type    string   `json:"type"`
	Channel Channel  `json:"channel"`
	Pairs   []string `json:"pairs"`
}

// WSOptions configures a WSClient.
type WSOptions struct {
	URL               string
	NoReconnect       bool
	ReconnectInterval time.Duration
	Logger            *slog.Logger
}

// WSClient streams Coinone market data. Its lifecycle is an explicit state
// machine driven by Run:
//
//	disconnected -> connecting -> connected -> reconnect_pending -> connecting ...
//
// Subscriptions are tracked per channel and replayed on every transition
// into connected. Close moves the client to disconnected for good.
type WSClient struct {
	url       string
	reconnect bool
	interval  time.Duration
	logger    *slog.Logger

	mu    sync.Mutex // guards conn, state, subs
	conn  *websocket.Conn
	state State
	subs  map[Channel]map[string]struct{}

	writeMu sync.Mutex

	handlerMu      sync.RWMutex
	tickerHandlers []TickerHandler
	bookHandlers   []OrderbookHandler
	tradeHandlers  []TradeHandler
	stateHandlers  []StateChangeHandler

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSClient creates a stream client; call Run to connect.
func NewWSClient(opts WSOptions) *WSClient {
	if opts.URL == "" {
		opts.URL = DefaultWSURL
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{
		url:       opts.URL,
		reconnect: !opts.NoReconnect,
		interval:  opts.ReconnectInterval,
		logger:    logger.With(slog.String("component", "coinone_ws")),
		subs:      make(map[Channel]map[string]struct{}),
		done:      make(chan struct{}),
	}
}

// State returns the current connection state.
func (w *WSClient) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// IsConnected reports whether the client is in the connected state.
func (w *WSClient) IsConnected() bool { return w.State() == StateConnected }

func (w *WSClient) OnTicker(h TickerHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.tickerHandlers = append(w.tickerHandlers, h)
}

func (w *WSClient) OnOrderbook(h OrderbookHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.bookHandlers = append(w.bookHandlers, h)
}

func (w *WSClient) OnTrade(h TradeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.tradeHandlers = append(w.tradeHandlers, h)
}

// OnStateChange registers a handler called on every state transition.
func (w *WSClient) OnStateChange(h StateChangeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.stateHandlers = append(w.stateHandlers, h)
}

// Subscribe tracks pairs on channel and, when connected, sends the request
// immediately. Tracked pairs are replayed after every reconnect.
func (w *WSClient) Subscribe(channel Channel, pairs ...string) error {
	w.mu.Lock()
	set, ok := w.subs[channel]
	if !ok {
		set = make(map[string]struct{})
		w.subs[channel] = set
	}
	for _, p := range pairs {
		set[p] = struct{}{}
	}
	conn := w.connectedConn()
	w.mu.Unlock()

	if conn == nil {
		return nil
	}
	return w.send(conn, WSCommand{Type: "subscribe", Channel: channel, Pairs: pairs})
}

// Unsubscribe stops tracking pairs on channel and, when connected, sends the
// request immediately.
func (w *WSClient) Unsubscribe(channel Channel, pairs ...string) error {
	w.mu.Lock()
	if set, ok := w.subs[channel]; ok {
		for _, p := range pairs {
			delete(set, p)
		}
		if len(set) == 0 {
			delete(w.subs, channel)
		}
	}
	conn := w.connectedConn()
	w.mu.Unlock()

	if conn == nil {
		return nil
	}
	return w.send(conn, WSCommand{Type: "unsubscribe", Channel: channel, Pairs: pairs})
}

// Subscriptions returns a copy of the tracked subscriptions.
func (w *WSClient) Subscriptions() map[Channel][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[Channel][]string, len(w.subs))
	for ch, set := range w.subs {
		for p := range set {
			out[ch] = append(out[ch], p)
		}
	}
	return out
}

// Run connects and keeps the stream alive until ctx is cancelled or Close
// is called. With reconnect disabled it returns an error wrapping
// domain.ErrWSDisconnect after the first connection is lost.
func (w *WSClient) Run(ctx context.Context) error {
	for {
		if w.stopped(ctx) {
			w.setState(StateDisconnected)
			return nil
		}

		w.setState(StateConnecting)
		err := w.session(ctx)

		if w.stopped(ctx) {
			w.setState(StateDisconnected)
			return nil
		}
		if !w.reconnect {
			w.setState(StateDisconnected)
			return fmt.Errorf("coinone/ws: %w: %v", domain.ErrWSDisconnect, err)
		}

		w.logger.WarnContext(ctx, "stream lost, reconnect pending",
			slog.String("error", errString(err)),
			slog.Duration("retry_in", w.interval),
		)
		w.setState(StateReconnectPending)

		timer := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-w.done:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Close stops Run and closes any open connection.
func (w *WSClient) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()
		if conn != nil {
			w.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			w.writeMu.Unlock()
			err = conn.Close()
		}
	})
	return err
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// session runs one connection from dial to read failure.
func (w *WSClient) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	w.mu.Lock()
	w.conn = conn
	from := w.state
	w.state = StateConnected
	replay := make([]WSCommand, 0, len(w.subs))
	for ch, set := range w.subs {
		if len(set) == 0 {
			continue
		}
		cmd := WSCommand{Type: "subscribe", Channel: ch}
		for p := range set {
			cmd.Pairs = append(cmd.Pairs, p)
		}
		replay = append(replay, cmd)
	}
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.conn = nil
		w.mu.Unlock()
	}()

	w.notify(from, StateConnected)
	w.logger.InfoContext(ctx, "stream connected", slog.String("url", w.url), slog.Int("subscriptions", len(replay)))

	for _, cmd := range replay {
		if err := w.send(conn, cmd); err != nil {
			return fmt.Errorf("restore subscription %s: %w", cmd.Channel, err)
		}
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-w.done:
		case <-stop:
			return
		}
		conn.Close()
	}()
	go w.pingLoop(conn, stop)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		w.handleMessage(message)
	}
}

// connectedConn returns the live connection when connected. Caller must
// hold w.mu.
func (w *WSClient) connectedConn() *websocket.Conn {
	if w.state != StateConnected {
		return nil
	}
	return w.conn
}

func (w *WSClient) send(conn *websocket.Conn, cmd WSCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("coinone/ws: marshal command: %w", err)
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("coinone/ws: send %s: %w", cmd.Type, err)
	}
	return nil
}

// pingLoop sends periodic ping messages to keep the WebSocket alive.
func (w *WSClient) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			w.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (w *WSClient) setState(to State) {
	w.mu.Lock()
	from := w.state
	w.state = to
	w.mu.Unlock()
	w.notify(from, to)
}

func (w *WSClient) notify(from, to State) {
	if from == to {
		return
	}
	w.handlerMu.RLock()
	handlers := w.stateHandlers
	w.handlerMu.RUnlock()
	for _, h := range handlers {
		h(from, to)
	}
}

func (w *WSClient) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

type wsEnvelope struct {
	Channel Channel `json:"channel"`
}

type wsTicker struct {
	TargetCurrency string       `json:"target_currency"`
	QuoteCurrency  string       `json:"quote_currency"`
	Last           numeric.Flex `json:"last"`
	High           numeric.Flex `json:"high"`
	Low            numeric.Flex `json:"low"`
	Volume         numeric.Flex `json:"volume"`
	Timestamp      int64        `json:"timestamp"`
}

type wsOrderbook struct {
	TargetCurrency string     `json:"target_currency"`
	QuoteCurrency  string     `json:"quote_currency"`
	Bids           []APILevel `json:"bids"`
	Asks           []APILevel `json:"asks"`
	Timestamp      int64      `json:"timestamp"`
}

type wsTrade struct {
	TargetCurrency string       `json:"target_currency"`
	QuoteCurrency  string       `json:"quote_currency"`
	Price          numeric.Flex `json:"price"`
	Qty            numeric.Flex `json:"qty"`
	IsSellerMaker  bool         `json:"is_seller_maker"`
	Timestamp      int64        `json:"timestamp"`
}

// handleMessage routes a frame by channel. Unparseable frames are dropped.
func (w *WSClient) handleMessage(raw []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch Channel(strings.ToLower(string(env.Channel))) {
	case ChannelTicker:
		var m wsTicker
		if err := json.Unmarshal(raw, &m); err != nil {
			return
		}
		t := domain.Ticker{
			Target:       strings.ToUpper(m.TargetCurrency),
			Quote:        strings.ToUpper(m.QuoteCurrency),
			Last:         m.Last.Float(),
			High:         m.High.Float(),
			Low:          m.Low.Float(),
			TargetVolume: m.Volume.Float(),
			Timestamp:    msToTime(m.Timestamp),
		}
		w.handlerMu.RLock()
		handlers := w.tickerHandlers
		w.handlerMu.RUnlock()
		for _, h := range handlers {
			h(t)
		}

	case ChannelOrderbook:
		var m wsOrderbook
		if err := json.Unmarshal(raw, &m); err != nil {
			return
		}
		snap := domain.OrderbookSnapshot{
			Target:    strings.ToUpper(m.TargetCurrency),
			Quote:     strings.ToUpper(m.QuoteCurrency),
			Bids:      levelsToDomain(m.Bids),
			Asks:      levelsToDomain(m.Asks),
			Timestamp: msToTime(m.Timestamp),
		}
		w.handlerMu.RLock()
		handlers := w.bookHandlers
		w.handlerMu.RUnlock()
		for _, h := range handlers {
			h(snap)
		}

	case ChannelTrades:
		var m wsTrade
		if err := json.Unmarshal(raw, &m); err != nil {
			return
		}
		ev := TradeEvent{
			Target: strings.ToUpper(m.TargetCurrency),
			Quote:  strings.ToUpper(m.QuoteCurrency),
			Trade: domain.Trade{
				Timestamp:     m.Timestamp,
				Price:         m.Price.Float(),
				Qty:           m.Qty.Float(),
				IsSellerMaker: m.IsSellerMaker,
			},
		}
		w.handlerMu.RLock()
		handlers := w.tradeHandlers
		w.handlerMu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return fmt.Sprintf("close %d: %s", ce.Code, ce.Text)
	}
	return err.Error()
}
