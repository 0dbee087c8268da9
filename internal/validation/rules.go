package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// RulesSource supplies the raw tables rules are built from.
type RulesSource interface {
	RangeUnits(ctx context.Context, quote string) ([]domain.RangeUnit, error)
	MarketInfo(ctx context.Context, target, quote string) (domain.MarketInfo, error)
}

// ResolveRules combines the range-unit row for target/quote with the market's
// amount limits. A missing row is a non-retryable error wrapping
// domain.ErrRulesNotFound.
func ResolveRules(units []domain.RangeUnit, info domain.MarketInfo, target, quote string) (domain.ValidationRules, error) {
	for _, u := range units {
		if strings.EqualFold(u.Target, target) && strings.EqualFold(u.Quote, quote) {
			return domain.ValidationRules{
				PriceUnit:      u.PriceUnit,
				QtyUnit:        u.QtyUnit,
				MinQty:         u.MinQty,
				MaxQty:         u.MaxQty,
				MinOrderAmount: info.MinOrderAmount,
				MaxOrderAmount: info.MaxOrderAmount,
			}, nil
		}
	}
	return domain.ValidationRules{}, fmt.Errorf("no range unit found for %s/%s: %w", target, quote, domain.ErrRulesNotFound)
}

// Resolver fetches and optionally caches validation rules.
type Resolver struct {
	source RulesSource
	cache  domain.RulesCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewResolver creates a Resolver. cache may be nil.
func NewResolver(source RulesSource, cache domain.RulesCache, ttl time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "rules_resolver")),
	}
}

// Rules returns the validation rules for target/quote. An empty quote means
// domain.DefaultQuote. Both tables are fetched concurrently.
func (r *Resolver) Rules(ctx context.Context, target, quote string) (domain.ValidationRules, error) {
	if quote == "" {
		quote = domain.DefaultQuote
	}
	target = strings.ToUpper(target)
	quote = strings.ToUpper(quote)

	if r.cache != nil {
		rules, err := r.cache.Get(ctx, target, quote)
		if err == nil {
			return rules, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.WarnContext(ctx, "rules cache read failed", slog.String("error", err.Error()))
		}
	}

	var (
		units []domain.RangeUnit
		info  domain.MarketInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		units, err = r.source.RangeUnits(gctx, quote)
		return err
	})
	g.Go(func() error {
		var err error
		info, err = r.source.MarketInfo(gctx, target, quote)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ValidationRules{}, fmt.Errorf("validation: fetch rules %s/%s: %w", target, quote, err)
	}

	rules, err := ResolveRules(units, info, target, quote)
	if err != nil {
		return domain.ValidationRules{}, err
	}

	if r.cache != nil && r.ttl > 0 {
		if err := r.cache.Set(ctx, target, quote, rules, r.ttl); err != nil {
			r.logger.WarnContext(ctx, "rules cache write failed", slog.String("error", err.Error()))
		}
	}
	return rules, nil
}

// ValidateOrderAuto resolves rules for target/quote and validates the order.
func (r *Resolver) ValidateOrderAuto(ctx context.Context, target string, price, qty float64, quote string) (domain.OrderValidation, error) {
	rules, err := r.Rules(ctx, target, quote)
	if err != nil {
		return domain.OrderValidation{}, err
	}
	return ValidateOrder(price, qty, rules), nil
}
