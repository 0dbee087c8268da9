package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewAnalysisCache(Wrap(db), time.Minute)
	ctx := context.Background()

	result := domain.AnalysisResult{
		Timestamp: 1700000000,
		Symbol:    "BTC/KRW",
		Flags:     []string{domain.FlagThinBookRisk},
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)

	t.Run("set latest", func(t *testing.T) {
		mock.ExpectSet("analysis:BTC/KRW", data, time.Minute).SetVal("OK")
		require.NoError(t, cache.SetLatest(ctx, result))
	})

	t.Run("get latest", func(t *testing.T) {
		mock.ExpectGet("analysis:BTC/KRW").SetVal(string(data))
		got, err := cache.GetLatest(ctx, "BTC/KRW")
		require.NoError(t, err)
		assert.Equal(t, "BTC/KRW", got.Symbol)
		assert.Equal(t, int64(1700000000), got.Timestamp)
		assert.True(t, got.HasFlag(domain.FlagThinBookRisk))
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("analysis:ETH/KRW").RedisNil()
		_, err := cache.GetLatest(ctx, "ETH/KRW")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisCache_DefaultTTL(t *testing.T) {
	db, _ := redismock.NewClientMock()
	assert.Equal(t, DefaultAnalysisTTL, NewAnalysisCache(Wrap(db), 0).ttl)
}

func TestRulesCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRulesCache(Wrap(db))
	ctx := context.Background()

	rules := domain.ValidationRules{
		PriceUnit: 1000, QtyUnit: 0.0001, MinQty: 0.001, MaxQty: 100,
		MinOrderAmount: 5000, MaxOrderAmount: 1e9,
	}
	data, err := json.Marshal(rules)
	require.NoError(t, err)

	mock.ExpectSet("rules:BTC:KRW", data, 5*time.Minute).SetVal("OK")
	require.NoError(t, cache.Set(ctx, "btc", "krw", rules, 5*time.Minute))

	mock.ExpectGet("rules:BTC:KRW").SetVal(string(data))
	got, err := cache.Get(ctx, "BTC", "KRW")
	require.NoError(t, err)
	assert.Equal(t, rules, got)

	mock.ExpectGet("rules:XRP:KRW").RedisNil()
	_, err = cache.Get(ctx, "XRP", "KRW")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderbookCache_GetBBO(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewOrderbookCache(Wrap(db), 0)
	ctx := context.Background()

	mock.ExpectHGetAll("book:BTC/KRW:bbo").SetVal(map[string]string{"bid": "50000000", "ask": "50001000"})
	bid, ask, err := cache.GetBBO(ctx, "BTC/KRW")
	require.NoError(t, err)
	assert.Equal(t, 50000000.0, bid)
	assert.Equal(t, 50001000.0, ask)

	mock.ExpectHGetAll("book:ETH/KRW:bbo").SetVal(map[string]string{})
	_, _, err = cache.GetBBO(ctx, "ETH/KRW")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestZLevels(t *testing.T) {
	zs := []goredis.Z{
		{Score: 101, Member: "101"},
		{Score: 100, Member: "100"},
		{Score: 99, Member: 99},
	}
	levels := zLevels(zs, map[string]string{"101": "1.5", "100": "2"})
	assert.Equal(t, []domain.PriceLevel{{Price: 101, Qty: 1.5}, {Price: 100, Qty: 2}}, levels)
}

func TestRateLimiter_Allow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rl := NewRateLimiter(Wrap(db))
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }
	ctx := context.Background()
	sha := goredis.NewScript(slidingWindowLua).Hash()

	mock.ExpectEvalSha(sha, []string{"ratelimit:ip:1.2.3.4"}, now.UnixMicro(), time.Minute.Microseconds(), 2).
		SetVal([]interface{}{int64(1), int64(1)})
	ok, err := rl.Allow(ctx, "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectEvalSha(sha, []string{"ratelimit:ip:1.2.3.4"}, now.UnixMicro(), time.Minute.Microseconds(), 2).
		SetVal([]interface{}{int64(0), int64(2)})
	d, err := rl.Check(ctx, "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: false, Count: 2, Remaining: 0}, d)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := Wrap(db)

	mock.ExpectPing().SetVal("PONG")
	require.NoError(t, c.Ping(context.Background()))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientConfig_Options(t *testing.T) {
	opts := ClientConfig{Addr: "cache:6379", DB: 2, TLSEnabled: true}.options()
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "coinonebot", opts.ClientName)
	require.NotNil(t, opts.TLSConfig)

	assert.Nil(t, ClientConfig{Addr: "cache:6379"}.options().TLSConfig)
}

func TestLockManager(t *testing.T) {
	db, mock := redismock.NewClientMock()
	lm := NewLockManager(Wrap(db))
	lm.token = func() string { return "tok-1" }
	ctx := context.Background()
	sha := goredis.NewScript(releaseLua).Hash()

	mock.ExpectSetNX("lock:archive", "tok-1", time.Minute).SetVal(true)
	mock.ExpectEvalSha(sha, []string{"lock:archive"}, "tok-1").SetVal(int64(1))

	unlock, err := lm.Acquire(ctx, "archive", time.Minute)
	require.NoError(t, err)
	unlock()
	unlock()

	mock.ExpectSetNX("lock:archive", "tok-1", time.Minute).SetVal(false)
	_, err = lm.Acquire(ctx, "archive", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	assert.NoError(t, mock.ExpectationsWereMet())
}
