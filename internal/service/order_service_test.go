package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

var btcRules = domain.ValidationRules{
	PriceUnit:      1000,
	QtyUnit:        0.0001,
	MinQty:         0.001,
	MaxQty:         100,
	MinOrderAmount: 5000,
	MaxOrderAmount: 1000000000,
}

func btcBook() *fakeMarket {
	return &fakeMarket{book: domain.OrderbookSnapshot{
		Bids: []domain.PriceLevel{{Price: 50000000, Qty: 0.5}, {Price: 49990000, Qty: 1}},
		Asks: []domain.PriceLevel{{Price: 50010000, Qty: 0.01}, {Price: 50020000, Qty: 0.02}},
	}}
}

func newOrderService(trader *fakeTrader, audit *memAudit, metrics *countingMetrics, alerts *flagRecorder, enabled bool) *OrderService {
	deps := OrderDeps{}
	if audit != nil {
		deps.Audit = audit
	}
	if metrics != nil {
		deps.Metrics = metrics
	}
	if trader != nil {
		deps.Trader = trader
	}
	if alerts != nil {
		deps.Notifier = alerts
	}
	return NewOrderService(staticRules{rules: btcRules}, btcBook(), deps, OrderConfig{
		Enabled:            enabled,
		MaxSingleOrder:     0.01,
		SpreadThresholdPct: 0.1,
		MaxSlippagePct:     0.01,
	}, quietLogger())
}

func limitBuy(price, qty float64) domain.OrderRequest {
	return domain.OrderRequest{Target: "btc", Side: "buy", Type: "limit", Price: price, Qty: qty}
}

func TestValidate(t *testing.T) {
	audit := &memAudit{}
	metrics := &countingMetrics{}
	svc := newOrderService(nil, audit, metrics, nil, false)

	v, err := svc.Validate(context.Background(), limitBuy(50000000, 0.01))
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
	assert.Equal(t, "50000000", v.AdjustedPrice)
	assert.Equal(t, "0.01", v.AdjustedQty)

	assert.Equal(t, []string{domain.AuditOrderValidated}, audit.events)
	assert.Equal(t, "BTC/KRW", audit.detail[0]["symbol"])
	assert.Equal(t, 1, metrics.validations[true])
}

func TestValidate_BadShape(t *testing.T) {
	svc := newOrderService(nil, nil, nil, nil, false)
	_, err := svc.Validate(context.Background(), domain.OrderRequest{Target: "BTC", Side: "HOLD", Price: 1, Qty: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestValidate_RulesError(t *testing.T) {
	svc := NewOrderService(staticRules{err: domain.ErrRulesNotFound}, btcBook(), OrderDeps{}, OrderConfig{}, quietLogger())
	_, err := svc.Validate(context.Background(), limitBuy(1, 1))
	assert.ErrorIs(t, err, domain.ErrRulesNotFound)
}

func TestValidate_MarketBuyUsesBestAsk(t *testing.T) {
	svc := newOrderService(nil, nil, nil, nil, false)
	v, err := svc.Validate(context.Background(), domain.OrderRequest{
		Target: "BTC", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: 100000,
	})
	require.NoError(t, err)
	assert.True(t, v.Valid, v.Errors)
	assert.Equal(t, "50010000", v.AdjustedPrice)
}

func TestPreCheck(t *testing.T) {
	svc := newOrderService(nil, nil, nil, nil, false)

	ok, err := svc.PreCheck(context.Background(), limitBuy(50000000, 0.01))
	require.NoError(t, err)
	assert.True(t, ok.OK)

	bad, err := svc.PreCheck(context.Background(), limitBuy(50000000, 0.0001))
	require.NoError(t, err)
	assert.False(t, bad.OK)
	assert.Contains(t, bad.Reason, "minimum")
}

func TestSubmit_Disabled(t *testing.T) {
	svc := newOrderService(&fakeTrader{}, nil, nil, nil, false)
	_, err := svc.Submit(context.Background(), limitBuy(50000000, 0.01))
	assert.ErrorIs(t, err, domain.ErrOrdersDisabled)

	svc = newOrderService(nil, nil, nil, nil, true)
	_, err = svc.Submit(context.Background(), limitBuy(50000000, 0.01))
	assert.ErrorIs(t, err, domain.ErrOrdersDisabled)
}

func TestSubmit_InvalidOrder(t *testing.T) {
	trader := &fakeTrader{}
	audit := &memAudit{}
	svc := newOrderService(trader, audit, nil, nil, true)

	_, err := svc.Submit(context.Background(), limitBuy(50000000, 0.0001))
	require.ErrorIs(t, err, domain.ErrInvalidOrder)
	assert.Contains(t, err.Error(), "below minimum")
	assert.Empty(t, trader.placed)
	assert.Equal(t, []string{domain.AuditOrderRejected}, audit.events)
}

func TestSubmit_InsufficientBalance(t *testing.T) {
	trader := &fakeTrader{balances: map[string]domain.Balance{"KRW": {Currency: "KRW", Available: 1000}}}
	svc := newOrderService(trader, &memAudit{}, nil, nil, true)

	_, err := svc.Submit(context.Background(), limitBuy(50000000, 0.01))
	require.ErrorIs(t, err, domain.ErrInvalidOrder)
	assert.Contains(t, err.Error(), "INSUFFICIENT_BALANCE")
	assert.Empty(t, trader.placed)
}

func TestSubmit_LimitBuyPlacesAdjustedOrder(t *testing.T) {
	trader := &fakeTrader{balances: map[string]domain.Balance{"KRW": {Currency: "KRW", Available: 1000000}}}
	audit := &memAudit{}
	alerts := &flagRecorder{}
	svc := newOrderService(trader, audit, nil, alerts, true)

	res, err := svc.Submit(context.Background(), limitBuy(50000500, 0.01))
	require.NoError(t, err)
	assert.Equal(t, "order-1", res.OrderID)

	require.Len(t, trader.placed, 1)
	p := trader.placed[0]
	assert.Equal(t, "BTC", p.Target)
	assert.Equal(t, "KRW", p.Quote)
	assert.Equal(t, domain.OrderSideBuy, p.Side)
	assert.Equal(t, domain.OrderTypeLimit, p.Type)
	assert.Equal(t, "50001000", p.Price)
	assert.Equal(t, "0.01", p.Qty)
	assert.Empty(t, p.Amount)

	assert.Equal(t, []string{domain.AuditOrderSubmitted}, audit.events)
	assert.Equal(t, []string{"order_submitted"}, alerts.events)
}

func TestSubmit_MarketBuySendsAmount(t *testing.T) {
	trader := &fakeTrader{}
	svc := newOrderService(trader, nil, nil, nil, true)

	_, err := svc.Submit(context.Background(), domain.OrderRequest{
		Target: "BTC", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: 100000,
	})
	require.NoError(t, err)
	require.Len(t, trader.placed, 1)
	assert.Equal(t, "100000", trader.placed[0].Amount)
	assert.Empty(t, trader.placed[0].Price)
	assert.Empty(t, trader.placed[0].Qty)
}

func TestSubmit_StopLimitTrigger(t *testing.T) {
	trader := &fakeTrader{}
	svc := newOrderService(trader, nil, nil, nil, true)

	_, err := svc.Submit(context.Background(), domain.OrderRequest{
		Target: "BTC", Side: domain.OrderSideSell, Type: domain.OrderTypeStopLimit,
		Price: 49000000, Qty: 0.01, TriggerPrice: 49100400,
	})
	require.NoError(t, err)
	require.Len(t, trader.placed, 1)
	assert.Equal(t, "49000000", trader.placed[0].Price)
	assert.Equal(t, "49100000", trader.placed[0].TriggerPrice)
}

func TestSubmit_ExchangeError(t *testing.T) {
	trader := &fakeTrader{placeErr: errors.New("exchange said no")}
	audit := &memAudit{}
	svc := newOrderService(trader, audit, nil, nil, true)

	_, err := svc.Submit(context.Background(), domain.OrderRequest{
		Target: "BTC", Side: domain.OrderSideSell, Type: domain.OrderTypeLimit, Price: 50000000, Qty: 0.01,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange said no")
	assert.Equal(t, []string{domain.AuditOrderRejected}, audit.events)
}

func TestCancel(t *testing.T) {
	trader := &fakeTrader{}
	audit := &memAudit{}
	svc := newOrderService(trader, audit, nil, nil, true)

	res, err := svc.Cancel(context.Background(), "abc", "btc", "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"abc"}, trader.canceled)
	assert.Equal(t, []string{domain.AuditOrderCanceled}, audit.events)

	_, err = svc.Cancel(context.Background(), "", "btc", "")
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestPlan(t *testing.T) {
	svc := newOrderService(nil, nil, nil, nil, false)

	plan, err := svc.Plan(context.Background(), domain.OrderRequest{Target: "BTC", Side: domain.OrderSideBuy, Qty: 0.025})
	require.NoError(t, err)

	assert.Equal(t, "BTC/KRW", plan.Symbol)
	assert.Equal(t, domain.OrderTypeMarket, plan.RecommendedType)
	assert.Len(t, plan.Chunks, 3)
	assert.InDelta(t, 0.025, plan.Slippage.FilledQty, 1e-12)
	assert.Greater(t, plan.Slippage.SlippagePercent, 0.0)
	require.NotNil(t, plan.Market.BestAsk)
	assert.Equal(t, 50010000.0, *plan.Market.BestAsk)
	assert.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "exceeds limit")
}

func TestPlan_ThinBookWarns(t *testing.T) {
	svc := newOrderService(nil, nil, nil, nil, false)
	plan, err := svc.Plan(context.Background(), domain.OrderRequest{Target: "BTC", Side: domain.OrderSideBuy, Qty: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Warnings)
	assert.Contains(t, plan.Warnings[0], "fills only")
}
