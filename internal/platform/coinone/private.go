package coinone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/alanyoungcy/coinonebot/internal/crypto"
	"github.com/alanyoungcy/coinonebot/internal/domain"
)

var _ domain.TradingClient = (*PrivateClient)(nil)

// PrivateClient is the REST client for Coinone account and order endpoints.
// Every request is signed with the V2 payload scheme.
type PrivateClient struct {
	t    *transport
	auth *crypto.PayloadAuth
}

// NewPrivateClient creates an authenticated client.
func NewPrivateClient(opts Options, auth *crypto.PayloadAuth) *PrivateClient {
	return &PrivateClient{t: newTransport("coinone-private", opts), auth: auth}
}

// post signs fields and sends them to path.
func (c *PrivateClient) post(ctx context.Context, path, endpoint string, fields map[string]any) ([]byte, error) {
	signed, err := c.auth.Sign(fields)
	if err != nil {
		return nil, err
	}
	return c.t.do(ctx, http.MethodPost, path, endpoint, signed.Body, signed.Headers)
}

// Balances returns holdings keyed by upper-case currency.
func (c *PrivateClient) Balances(ctx context.Context) (map[string]domain.Balance, error) {
	body, err := c.post(ctx, "/v2/account/balance", "balance", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("coinone: balance: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("coinone: decode balance: %w", err)
	}
	if env.Result != "success" {
		return nil, fmt.Errorf("coinone: balance: %w", NewAPIError(env.code()))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("coinone: decode balance: %w", err)
	}
	out := make(map[string]domain.Balance, len(raw))
	for cur, msg := range raw {
		if len(msg) == 0 || msg[0] != '{' {
			continue
		}
		var b APIBalance
		if err := json.Unmarshal(msg, &b); err != nil {
			continue
		}
		sym := strings.ToUpper(cur)
		out[sym] = domain.Balance{Currency: sym, Available: b.Avail.Float(), Total: b.Balance.Float()}
	}
	return out, nil
}

// PlaceOrder submits an order. Empty optional fields are omitted.
func (c *PrivateClient) PlaceOrder(ctx context.Context, p domain.PlaceOrderParams) (domain.OrderResult, error) {
	target, quote := pair(p.Target, p.Quote)
	fields := map[string]any{
		"side":            string(p.Side),
		"quote_currency":  quote,
		"target_currency": target,
		"type":            string(p.Type),
	}
	if p.Price != "" {
		fields["price"] = p.Price
	}
	if p.Qty != "" {
		fields["qty"] = p.Qty
	}
	if p.Amount != "" {
		fields["amount"] = p.Amount
	}
	if p.PostOnly != nil {
		fields["post_only"] = *p.PostOnly
	}
	if p.TriggerPrice != "" {
		fields["trigger_price"] = p.TriggerPrice
	}

	body, err := c.post(ctx, "/v2.1/order", "order", fields)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("coinone: place order %s/%s: %w", target, quote, err)
	}
	var resp APIOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("coinone: decode order response: %w", err)
	}
	return resp.ToDomain(), nil
}

// CancelOrder cancels one order.
func (c *PrivateClient) CancelOrder(ctx context.Context, orderID, target, quote string) (domain.OrderResult, error) {
	target, quote = pair(target, quote)
	fields := map[string]any{
		"order_id":        orderID,
		"quote_currency":  quote,
		"target_currency": target,
	}
	body, err := c.post(ctx, "/v2.1/order/cancel", "cancel", fields)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("coinone: cancel order %s: %w", orderID, err)
	}
	var resp APIOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("coinone: decode cancel response: %w", err)
	}
	result := resp.ToDomain()
	if result.OrderID == "" {
		result.OrderID = orderID
	}
	return result, nil
}

// ActiveOrders lists open orders for one pair.
func (c *PrivateClient) ActiveOrders(ctx context.Context, target, quote string) ([]domain.ActiveOrder, error) {
	target, quote = pair(target, quote)
	fields := map[string]any{
		"quote_currency":  quote,
		"target_currency": target,
	}
	body, err := c.post(ctx, "/v2.1/order/active_orders", "active_orders", fields)
	if err != nil {
		return nil, fmt.Errorf("coinone: active orders %s/%s: %w", target, quote, err)
	}
	var resp activeOrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("coinone: decode active orders: %w", err)
	}
	out := make([]domain.ActiveOrder, 0, len(resp.ActiveOrders))
	for _, o := range resp.ActiveOrders {
		ao := o.ToDomain()
		if ao.Target == "" {
			ao.Target, ao.Quote = target, quote
		}
		out = append(out, ao)
	}
	return out, nil
}
