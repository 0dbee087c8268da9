package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// OrderbookCache implements domain.OrderbookCache using Redis sorted sets and
// hashes for each pair's book.
//
// Key schema:
//
//	book:{symbol}:bids     - sorted set of bid prices (score = price)
//	book:{symbol}:asks     - sorted set of ask prices (score = price)
//	book:{symbol}:bid:qty  - hash mapping price -> qty for bids
//	book:{symbol}:ask:qty  - hash mapping price -> qty for asks
//	book:{symbol}:bbo      - hash with fields "bid" and "ask"
//	book:{symbol}:meta     - hash with "ts" field (snapshot time, unix nanos)
type OrderbookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOrderbookCache creates an OrderbookCache. Keys expire after ttl when it
// is positive so books of pairs that stop streaming do not linger.
func NewOrderbookCache(c *Client, ttl time.Duration) *OrderbookCache {
	return &OrderbookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookBidsKey(symbol string) string   { return "book:" + symbol + ":bids" }
func bookAsksKey(symbol string) string   { return "book:" + symbol + ":asks" }
func bookBidQtyKey(symbol string) string { return "book:" + symbol + ":bid:qty" }
func bookAskQtyKey(symbol string) string { return "book:" + symbol + ":ask:qty" }
func bookBBOKey(symbol string) string    { return "book:" + symbol + ":bbo" }
func bookMetaKey(symbol string) string   { return "book:" + symbol + ":meta" }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// SetSnapshot atomically replaces the stored book for snap's pair.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, snap domain.OrderbookSnapshot) error {
	symbol := snap.Symbol()
	keys := []string{
		bookBidsKey(symbol), bookAsksKey(symbol),
		bookBidQtyKey(symbol), bookAskQtyKey(symbol),
		bookBBOKey(symbol), bookMetaKey(symbol),
	}

	pipe := oc.rdb.TxPipeline()
	pipe.Del(ctx, keys...)

	for _, lvl := range snap.Bids {
		price := formatFloat(lvl.Price)
		pipe.ZAdd(ctx, keys[0], redis.Z{Score: lvl.Price, Member: price})
		pipe.HSet(ctx, keys[2], price, formatFloat(lvl.Qty))
	}
	for _, lvl := range snap.Asks {
		price := formatFloat(lvl.Price)
		pipe.ZAdd(ctx, keys[1], redis.Z{Score: lvl.Price, Member: price})
		pipe.HSet(ctx, keys[3], price, formatFloat(lvl.Qty))
	}

	if len(snap.Bids) > 0 {
		pipe.HSet(ctx, keys[4], "bid", formatFloat(snap.Bids[0].Price))
	}
	if len(snap.Asks) > 0 {
		pipe.HSet(ctx, keys[4], "ask", formatFloat(snap.Asks[0].Price))
	}
	pipe.HSet(ctx, keys[5], "ts", strconv.FormatInt(snap.Timestamp.UnixNano(), 10))

	if oc.ttl > 0 {
		for _, k := range keys {
			pipe.Expire(ctx, k, oc.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set orderbook snapshot %s: %w", symbol, err)
	}
	return nil
}

// GetSnapshot rebuilds the stored book. It returns domain.ErrNotFound when the
// pair has never been written or has expired.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, symbol string) (domain.OrderbookSnapshot, error) {
	pipe := oc.rdb.Pipeline()
	bidsCmd := pipe.ZRevRangeWithScores(ctx, bookBidsKey(symbol), 0, -1)
	asksCmd := pipe.ZRangeWithScores(ctx, bookAsksKey(symbol), 0, -1)
	bidQtyCmd := pipe.HGetAll(ctx, bookBidQtyKey(symbol))
	askQtyCmd := pipe.HGetAll(ctx, bookAskQtyKey(symbol))
	metaCmd := pipe.HGetAll(ctx, bookMetaKey(symbol))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get orderbook snapshot %s: %w", symbol, err)
	}

	meta, _ := metaCmd.Result()
	if len(meta) == 0 {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}

	target, quote := domain.ParseSymbol(symbol)
	snap := domain.OrderbookSnapshot{Target: target, Quote: quote}
	if ts, err := strconv.ParseInt(meta["ts"], 10, 64); err == nil {
		snap.Timestamp = time.Unix(0, ts).UTC()
	}

	bids, _ := bidsCmd.Result()
	bidQty, _ := bidQtyCmd.Result()
	snap.Bids = zLevels(bids, bidQty)

	asks, _ := asksCmd.Result()
	askQty, _ := askQtyCmd.Result()
	snap.Asks = zLevels(asks, askQty)

	return snap, nil
}

func zLevels(zs []redis.Z, qty map[string]string) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(zs))
	for _, z := range zs {
		price, ok := z.Member.(string)
		if !ok {
			continue
		}
		q, _ := strconv.ParseFloat(qty[price], 64)
		levels = append(levels, domain.PriceLevel{Price: z.Score, Qty: q})
	}
	return levels
}

// GetBBO retrieves the best bid and ask. It returns domain.ErrNotFound if no
// BBO data exists.
func (oc *OrderbookCache) GetBBO(ctx context.Context, symbol string) (bestBid, bestAsk float64, err error) {
	vals, err := oc.rdb.HGetAll(ctx, bookBBOKey(symbol)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get bbo %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return 0, 0, domain.ErrNotFound
	}

	if s, ok := vals["bid"]; ok {
		bestBid, _ = strconv.ParseFloat(s, 64)
	}
	if s, ok := vals["ask"]; ok {
		bestAsk, _ = strconv.ParseFloat(s, 64)
	}
	return bestBid, bestAsk, nil
}

var _ domain.OrderbookCache = (*OrderbookCache)(nil)
