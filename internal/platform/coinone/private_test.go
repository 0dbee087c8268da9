package coinone

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/coinonebot/internal/crypto"
	"github.com/alanyoungcy/coinonebot/internal/domain"
)

type capturedRequest struct {
	path    string
	method  string
	payload map[string]any
	sig     string
}

func newTestPrivate(t *testing.T, respond func(path string) string) (*PrivateClient, *[]capturedRequest) {
	t.Helper()
	var reqs []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw, err := base64.StdEncoding.DecodeString(r.Header.Get(crypto.HeaderPayload))
		require.NoError(t, err)
		assert.JSONEq(t, string(raw), string(body))

		var payload map[string]any
		require.NoError(t, json.Unmarshal(raw, &payload))
		reqs = append(reqs, capturedRequest{
			path:    r.URL.Path,
			method:  r.Method,
			payload: payload,
			sig:     r.Header.Get(crypto.HeaderSignature),
		})
		w.Write([]byte(respond(r.URL.Path)))
	}))
	t.Cleanup(srv.Close)

	auth := &crypto.PayloadAuth{AccessToken: "token", Secret: "secret"}
	return NewPrivateClient(Options{BaseURL: srv.URL, RequestsPerSecond: 1000, Burst: 10}, auth), &reqs
}

func TestBalances(t *testing.T) {
	c, reqs := newTestPrivate(t, func(string) string {
		return `{"result":"success","errorCode":"0","krw":{"avail":"1000000","balance":"1500000"},"btc":{"avail":"0.5","balance":"0.5"}}`
	})

	bal, err := c.Balances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Balance{Currency: "KRW", Available: 1000000, Total: 1500000}, bal["KRW"])
	assert.Equal(t, 0.5, bal["BTC"].Available)
	assert.Len(t, bal, 2)

	require.Len(t, *reqs, 1)
	r := (*reqs)[0]
	assert.Equal(t, http.MethodPost, r.method)
	assert.Equal(t, "/v2/account/balance", r.path)
	assert.Equal(t, "token", r.payload["access_token"])
	assert.NotEmpty(t, r.payload["nonce"])
	assert.Len(t, r.sig, 128)
}

func TestBalancesFailure(t *testing.T) {
	c, _ := newTestPrivate(t, func(string) string {
		return `{"result":"error","errorCode":"12"}`
	})
	_, err := c.Balances(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, err.Error(), "API Error: 12")
}

func TestPlaceOrder(t *testing.T) {
	c, reqs := newTestPrivate(t, func(string) string {
		return `{"result":"success","error_code":"0","order_id":"abc-123"}`
	})

	postOnly := true
	res, err := c.PlaceOrder(context.Background(), domain.PlaceOrderParams{
		Target: "btc", Quote: "krw", Side: domain.OrderSideBuy, Type: domain.OrderTypeLimit,
		Price: "50001000", Qty: "0.01", PostOnly: &postOnly,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "abc-123", res.OrderID)

	p := (*reqs)[0].payload
	assert.Equal(t, "/v2.1/order", (*reqs)[0].path)
	assert.Equal(t, "BUY", p["side"])
	assert.Equal(t, "LIMIT", p["type"])
	assert.Equal(t, "BTC", p["target_currency"])
	assert.Equal(t, "KRW", p["quote_currency"])
	assert.Equal(t, "50001000", p["price"])
	assert.Equal(t, "0.01", p["qty"])
	assert.Equal(t, true, p["post_only"])
	assert.NotContains(t, p, "amount")
	assert.NotContains(t, p, "trigger_price")
}

func TestPlaceOrderRejected(t *testing.T) {
	c, _ := newTestPrivate(t, func(string) string {
		return `{"result":"error","error_code":"103"}`
	})
	_, err := c.PlaceOrder(context.Background(), domain.PlaceOrderParams{Target: "BTC", Quote: "KRW", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: "10000"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestCancelAndActiveOrders(t *testing.T) {
	c, reqs := newTestPrivate(t, func(path string) string {
		if path == "/v2.1/order/active_orders" {
			return `{"result":"success","active_orders":[{"order_id":"o1","type":"LIMIT","side":"SELL","price":"51000000","qty":"0.2","remain_qty":"0.1"}]}`
		}
		return `{"result":"success","error_code":"0"}`
	})

	res, err := c.CancelOrder(context.Background(), "o1", "BTC", "KRW")
	require.NoError(t, err)
	assert.Equal(t, "o1", res.OrderID)
	assert.Equal(t, "o1", (*reqs)[0].payload["order_id"])

	orders, err := c.ActiveOrders(context.Background(), "BTC", "KRW")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.ActiveOrder{OrderID: "o1", Target: "BTC", Quote: "KRW", Side: domain.OrderSideSell, Type: domain.OrderTypeLimit, Price: 51000000, Qty: 0.1}, orders[0])
}
