package coinone

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

var _ domain.MarketDataClient = (*PublicClient)(nil)

// DefaultOrderbookSize is the depth requested when none is given.
const DefaultOrderbookSize = 15

var orderbookSizes = map[int]bool{5: true, 10: true, 15: true, 16: true}

// PublicClient is the REST client for Coinone public market data.
type PublicClient struct {
	t *transport
}

// NewPublicClient creates a public market data client.
func NewPublicClient(opts Options) *PublicClient {
	return &PublicClient{t: newTransport("coinone-public", opts)}
}

func pair(target, quote string) (string, string) {
	if quote == "" {
		quote = domain.DefaultQuote
	}
	return strings.ToUpper(target), strings.ToUpper(quote)
}

func (c *PublicClient) get(ctx context.Context, path, endpoint string, out any) error {
	body, err := c.t.do(ctx, http.MethodGet, path, endpoint, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// Ticker returns the 24h ticker for one pair.
func (c *PublicClient) Ticker(ctx context.Context, target, quote string) (domain.Ticker, error) {
	target, quote = pair(target, quote)
	var resp tickerResponse
	path := fmt.Sprintf("/public/v2/ticker_new/%s/%s", url.PathEscape(quote), url.PathEscape(target))
	if err := c.get(ctx, path, "ticker", &resp); err != nil {
		return domain.Ticker{}, fmt.Errorf("coinone: ticker %s/%s: %w", target, quote, err)
	}
	if len(resp.Tickers) == 0 {
		return domain.Ticker{}, fmt.Errorf("coinone: ticker %s/%s: %w", target, quote, domain.ErrNotFound)
	}
	return resp.Tickers[0].ToDomain(), nil
}

// Tickers returns every ticker quoted in quote.
func (c *PublicClient) Tickers(ctx context.Context, quote string) ([]domain.Ticker, error) {
	_, quote = pair("", quote)
	var resp tickerResponse
	if err := c.get(ctx, "/public/v2/ticker_new/"+url.PathEscape(quote), "tickers", &resp); err != nil {
		return nil, fmt.Errorf("coinone: tickers %s: %w", quote, err)
	}
	out := make([]domain.Ticker, 0, len(resp.Tickers))
	for _, t := range resp.Tickers {
		out = append(out, t.ToDomain())
	}
	return out, nil
}

// Orderbook returns the current book. size must be 5, 10, 15 or 16; any
// other value requests DefaultOrderbookSize.
func (c *PublicClient) Orderbook(ctx context.Context, target, quote string, size int) (domain.OrderbookSnapshot, error) {
	target, quote = pair(target, quote)
	if !orderbookSizes[size] {
		size = DefaultOrderbookSize
	}
	path := fmt.Sprintf("/public/v2/orderbook/%s/%s?size=%d", url.PathEscape(quote), url.PathEscape(target), size)
	var resp APIOrderbook
	if err := c.get(ctx, path, "orderbook", &resp); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("coinone: orderbook %s/%s: %w", target, quote, err)
	}
	snap := resp.ToDomain()
	if snap.Target == "" {
		snap.Target, snap.Quote = target, quote
	}
	return snap, nil
}

// Markets returns every market quoted in quote.
func (c *PublicClient) Markets(ctx context.Context, quote string) ([]APIMarket, error) {
	_, quote = pair("", quote)
	var resp marketsResponse
	if err := c.get(ctx, "/public/v2/markets/"+url.PathEscape(quote), "markets", &resp); err != nil {
		return nil, fmt.Errorf("coinone: markets %s: %w", quote, err)
	}
	return resp.Markets, nil
}

// RangeUnits returns the tick-size table for every market quoted in quote.
func (c *PublicClient) RangeUnits(ctx context.Context, quote string) ([]domain.RangeUnit, error) {
	markets, err := c.Markets(ctx, quote)
	if err != nil {
		return nil, err
	}
	units := make([]domain.RangeUnit, 0, len(markets))
	for _, m := range markets {
		units = append(units, m.ToRangeUnit())
	}
	return units, nil
}

// MarketInfo returns the order amount limits for one market.
func (c *PublicClient) MarketInfo(ctx context.Context, target, quote string) (domain.MarketInfo, error) {
	target, quote = pair(target, quote)
	path := fmt.Sprintf("/public/v2/markets/%s/%s", url.PathEscape(quote), url.PathEscape(target))
	var resp marketsResponse
	if err := c.get(ctx, path, "market", &resp); err != nil {
		return domain.MarketInfo{}, fmt.Errorf("coinone: market %s/%s: %w", target, quote, err)
	}
	if len(resp.Markets) == 0 {
		return domain.MarketInfo{}, fmt.Errorf("coinone: market %s/%s: %w", target, quote, domain.ErrNotFound)
	}
	return resp.Markets[0].ToMarketInfo(), nil
}

// RecentTrades returns the most recent public trades, oldest first.
func (c *PublicClient) RecentTrades(ctx context.Context, target, quote string) ([]domain.Trade, error) {
	target, quote = pair(target, quote)
	path := fmt.Sprintf("/public/v2/trades/%s/%s", url.PathEscape(quote), url.PathEscape(target))
	var resp tradesResponse
	if err := c.get(ctx, path, "trades", &resp); err != nil {
		return nil, fmt.Errorf("coinone: trades %s/%s: %w", target, quote, err)
	}
	trades := make([]domain.Trade, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		trades = append(trades, t.ToDomain())
	}
	sortTrades(trades)
	return trades, nil
}

// Currencies lists every listed asset.
func (c *PublicClient) Currencies(ctx context.Context) ([]domain.Currency, error) {
	var resp currenciesResponse
	if err := c.get(ctx, "/public/v2/currencies", "currencies", &resp); err != nil {
		return nil, fmt.Errorf("coinone: currencies: %w", err)
	}
	out := make([]domain.Currency, 0, len(resp.Currencies))
	for _, cur := range resp.Currencies {
		out = append(out, cur.ToDomain())
	}
	return out, nil
}

// Chart returns candles for interval (e.g. "1m", "1h", "1d").
func (c *PublicClient) Chart(ctx context.Context, target, quote, interval string) ([]domain.Candle, error) {
	target, quote = pair(target, quote)
	if interval == "" {
		interval = "1h"
	}
	params := url.Values{}
	params.Set("interval", interval)
	path := fmt.Sprintf("/public/v2/chart/%s/%s?%s", url.PathEscape(quote), url.PathEscape(target), params.Encode())
	var resp chartResponse
	if err := c.get(ctx, path, "chart", &resp); err != nil {
		return nil, fmt.Errorf("coinone: chart %s/%s: %w", target, quote, err)
	}
	out := make([]domain.Candle, 0, len(resp.Chart))
	for _, k := range resp.Chart {
		out = append(out, k.ToDomain())
	}
	return out, nil
}

// sortTrades orders trades oldest first so the last element is the most
// recent trade; the API returns newest first.
func sortTrades(trades []domain.Trade) {
	slices.SortStableFunc(trades, func(a, b domain.Trade) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
}
