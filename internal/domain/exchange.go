package domain

import "context"

// MarketDataClient reads public market data from the exchange.
type MarketDataClient interface {
	Orderbook(ctx context.Context, target, quote string, size int) (OrderbookSnapshot, error)
	RecentTrades(ctx context.Context, target, quote string) ([]Trade, error)
	RangeUnits(ctx context.Context, quote string) ([]RangeUnit, error)
	MarketInfo(ctx context.Context, target, quote string) (MarketInfo, error)
}

// TradingClient places and manages orders on the exchange.
type TradingClient interface {
	Balances(ctx context.Context) (map[string]Balance, error)
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID, target, quote string) (OrderResult, error)
	ActiveOrders(ctx context.Context, target, quote string) ([]ActiveOrder, error)
}
