package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RulesCache implements domain.RulesCache.
//
// Key schema:
//
//	rules:{TARGET}:{QUOTE} - JSON encoded domain.ValidationRules
type RulesCache struct {
	rdb *redis.Client
}

// NewRulesCache creates a RulesCache backed by the given Client.
func NewRulesCache(c *Client) *RulesCache {
	return &RulesCache{rdb: c.Underlying()}
}

func rulesKey(target, quote string) string {
	return "rules:" + strings.ToUpper(target) + ":" + strings.ToUpper(quote)
}

// Set stores rules for the pair with the given ttl.
func (rc *RulesCache) Set(ctx context.Context, target, quote string, rules domain.ValidationRules, ttl time.Duration) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("redis: marshal rules %s/%s: %w", target, quote, err)
	}
	if err := rc.rdb.Set(ctx, rulesKey(target, quote), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set rules %s/%s: %w", target, quote, err)
	}
	return nil
}

// Get returns domain.ErrNotFound on a cache miss.
func (rc *RulesCache) Get(ctx context.Context, target, quote string) (domain.ValidationRules, error) {
	data, err := rc.rdb.Get(ctx, rulesKey(target, quote)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ValidationRules{}, domain.ErrNotFound
		}
		return domain.ValidationRules{}, fmt.Errorf("redis: get rules %s/%s: %w", target, quote, err)
	}

	var rules domain.ValidationRules
	if err := json.Unmarshal(data, &rules); err != nil {
		return domain.ValidationRules{}, fmt.Errorf("redis: unmarshal rules %s/%s: %w", target, quote, err)
	}
	return rules, nil
}

var _ domain.RulesCache = (*RulesCache)(nil)
