package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMarket struct {
	book      domain.OrderbookSnapshot
	trades    []domain.Trade
	bookErr   error
	tradesErr error
	units     []domain.RangeUnit
	info      domain.MarketInfo
}

func (f *fakeMarket) Orderbook(_ context.Context, target, quote string, _ int) (domain.OrderbookSnapshot, error) {
	if f.bookErr != nil {
		return domain.OrderbookSnapshot{}, f.bookErr
	}
	b := f.book
	b.Target, b.Quote = target, quote
	return b, nil
}

func (f *fakeMarket) RecentTrades(context.Context, string, string) ([]domain.Trade, error) {
	return f.trades, f.tradesErr
}

func (f *fakeMarket) RangeUnits(context.Context, string) ([]domain.RangeUnit, error) {
	return f.units, nil
}

func (f *fakeMarket) MarketInfo(context.Context, string, string) (domain.MarketInfo, error) {
	return f.info, nil
}

type staticRules struct {
	rules domain.ValidationRules
	err   error
}

func (s staticRules) Rules(context.Context, string, string) (domain.ValidationRules, error) {
	return s.rules, s.err
}

type fakeTrader struct {
	balances map[string]domain.Balance
	placed   []domain.PlaceOrderParams
	canceled []string
	placeErr error
}

func (f *fakeTrader) Balances(context.Context) (map[string]domain.Balance, error) {
	return f.balances, nil
}

func (f *fakeTrader) PlaceOrder(_ context.Context, p domain.PlaceOrderParams) (domain.OrderResult, error) {
	if f.placeErr != nil {
		return domain.OrderResult{}, f.placeErr
	}
	f.placed = append(f.placed, p)
	return domain.OrderResult{Success: true, OrderID: "order-1"}, nil
}

func (f *fakeTrader) CancelOrder(_ context.Context, id, _, _ string) (domain.OrderResult, error) {
	f.canceled = append(f.canceled, id)
	return domain.OrderResult{Success: true, OrderID: id}, nil
}

func (f *fakeTrader) ActiveOrders(context.Context, string, string) ([]domain.ActiveOrder, error) {
	return nil, nil
}

type memAudit struct {
	mu     sync.Mutex
	events []string
	detail []map[string]any
}

func (m *memAudit) Log(_ context.Context, event string, detail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.detail = append(m.detail, detail)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type memAnalysisCache struct {
	latest map[string]domain.AnalysisResult
}

func (m *memAnalysisCache) SetLatest(_ context.Context, r domain.AnalysisResult) error {
	if m.latest == nil {
		m.latest = make(map[string]domain.AnalysisResult)
	}
	m.latest[r.Symbol] = r
	return nil
}

func (m *memAnalysisCache) GetLatest(_ context.Context, symbol string) (domain.AnalysisResult, error) {
	r, ok := m.latest[symbol]
	if !ok {
		return domain.AnalysisResult{}, domain.ErrNotFound
	}
	return r, nil
}

type memAnalysisStore struct {
	rows     []domain.AnalysisResult
	lastOpts domain.ListOpts
}

func (m *memAnalysisStore) Insert(_ context.Context, r domain.AnalysisResult) error {
	m.rows = append(m.rows, r)
	return nil
}

func (m *memAnalysisStore) ListBySymbol(_ context.Context, symbol string, opts domain.ListOpts) ([]domain.AnalysisResult, error) {
	m.lastOpts = opts
	var out []domain.AnalysisResult
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].Symbol == symbol {
			out = append(out, m.rows[i])
		}
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *memAnalysisStore) ListBefore(context.Context, time.Time, int) ([]domain.AnalysisResult, error) {
	return nil, nil
}

func (m *memAnalysisStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type memBus struct {
	published map[string][][]byte
}

func (m *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	if m.published == nil {
		m.published = make(map[string][][]byte)
	}
	m.published[channel] = append(m.published[channel], payload)
	return nil
}

func (m *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

type countingMetrics struct {
	analyses    int
	validations map[bool]int
}

func (c *countingMetrics) ObserveAnalysis(domain.AnalysisResult) { c.analyses++ }

func (c *countingMetrics) ObserveValidation(valid bool) {
	if c.validations == nil {
		c.validations = make(map[bool]int)
	}
	c.validations[valid]++
}

type flagRecorder struct {
	results []domain.AnalysisResult
	events  []string
}

func (f *flagRecorder) NotifyFlags(_ context.Context, r domain.AnalysisResult) error {
	f.results = append(f.results, r)
	return nil
}

func (f *flagRecorder) Notify(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}
