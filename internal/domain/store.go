package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AnalysisStore persists analysis history.
type AnalysisStore interface {
	Insert(ctx context.Context, result AnalysisResult) error
	ListBySymbol(ctx context.Context, symbol string, opts ListOpts) ([]AnalysisResult, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]AnalysisResult, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Audit events written by the order service.
const (
	AuditOrderValidated = "order_validated"
	AuditOrderSubmitted = "order_submitted"
	AuditOrderRejected  = "order_rejected"
	AuditOrderCanceled  = "order_canceled"
)

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
