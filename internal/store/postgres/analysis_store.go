package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// AnalysisStore implements domain.AnalysisStore. Each row keeps the
// headline scores in columns for querying and the full result as JSONB.
type AnalysisStore struct {
	pool *pgxpool.Pool
}

// NewAnalysisStore creates a new AnalysisStore backed by the given pool.
func NewAnalysisStore(pool *pgxpool.Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

// Insert appends one analysis snapshot.
func (s *AnalysisStore) Insert(ctx context.Context, result domain.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("postgres: marshal analysis %s: %w", result.Symbol, err)
	}

	flags := result.Flags
	if flags == nil {
		flags = []string{}
	}

	const query = `
		INSERT INTO analysis_snapshots (symbol, ts, market_pressure, liquidity_score, flags, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.pool.Exec(ctx, query,
		result.Symbol,
		time.Unix(result.Timestamp, 0).UTC(),
		result.Scores.MarketPressure,
		result.Scores.LiquidityScore,
		flags,
		payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert analysis %s: %w", result.Symbol, err)
	}
	return nil
}

// ListBySymbol returns the newest snapshots for symbol first.
func (s *AnalysisStore) ListBySymbol(ctx context.Context, symbol string, opts domain.ListOpts) ([]domain.AnalysisResult, error) {
	q := newSelect(`SELECT payload FROM analysis_snapshots`).
		where("symbol =", symbol).
		page("ts", opts)

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list analyses %s: %w", symbol, err)
	}
	return scanPayloads(rows)
}

// ListBefore returns up to limit snapshots older than before, oldest first.
func (s *AnalysisStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.AnalysisResult, error) {
	q := newSelect(`SELECT payload FROM analysis_snapshots`).where("ts <", before)
	q.sb.WriteString(" ORDER BY ts ASC, id ASC")
	q.limit(limit)

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list analyses before %s: %w", before.Format(time.RFC3339), err)
	}
	return scanPayloads(rows)
}

// DeleteBefore removes snapshots older than before and reports how many.
func (s *AnalysisStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analysis_snapshots WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete analyses before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanPayloads(rows pgx.Rows) ([]domain.AnalysisResult, error) {
	defer rows.Close()

	results := []domain.AnalysisResult{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan analysis: %w", err)
		}
		result, err := decodeAnalysis(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: analysis rows: %w", err)
	}
	return results, nil
}

func decodeAnalysis(payload []byte) (domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("postgres: unmarshal analysis: %w", err)
	}
	return result, nil
}

var _ domain.AnalysisStore = (*AnalysisStore)(nil)
