package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultAnalysisTTL bounds how long a latest result stays readable.
const DefaultAnalysisTTL = 10 * time.Minute

// AnalysisCache implements domain.AnalysisCache as one JSON string per
// symbol.
//
// Key schema:
//
//	analysis:{symbol} - JSON encoded domain.AnalysisResult
type AnalysisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAnalysisCache creates an AnalysisCache. A non-positive ttl falls back to
// DefaultAnalysisTTL.
func NewAnalysisCache(c *Client, ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = DefaultAnalysisTTL
	}
	return &AnalysisCache{rdb: c.Underlying(), ttl: ttl}
}

func analysisKey(symbol string) string { return "analysis:" + symbol }

// SetLatest overwrites the cached result for result.Symbol.
func (ac *AnalysisCache) SetLatest(ctx context.Context, result domain.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: marshal analysis %s: %w", result.Symbol, err)
	}
	if err := ac.rdb.Set(ctx, analysisKey(result.Symbol), data, ac.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set analysis %s: %w", result.Symbol, err)
	}
	return nil
}

// GetLatest returns domain.ErrNotFound when nothing is cached for symbol.
func (ac *AnalysisCache) GetLatest(ctx context.Context, symbol string) (domain.AnalysisResult, error) {
	data, err := ac.rdb.Get(ctx, analysisKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AnalysisResult{}, domain.ErrNotFound
		}
		return domain.AnalysisResult{}, fmt.Errorf("redis: get analysis %s: %w", symbol, err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("redis: unmarshal analysis %s: %w", symbol, err)
	}
	return result, nil
}

var _ domain.AnalysisCache = (*AnalysisCache)(nil)
