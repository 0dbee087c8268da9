package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

const (
	jsonlContentType = "application/x-ndjson"

	// multipartThreshold is the payload size above which uploads go through
	// the multipart manager.
	multipartThreshold = 8 * 1024 * 1024
)

// AnalysisArchiveStore is the slice of domain.AnalysisStore the archiver
// needs.
type AnalysisArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.AnalysisResult, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ArchiverOptions tunes an Archiver.
type ArchiverOptions struct {
	// Prune deletes the archived rows from the store after a successful
	// upload.
	Prune bool
	// Audit, when set, records every archive run.
	Audit  domain.AuditStore
	Logger *slog.Logger
}

// Archiver implements domain.Archiver by exporting analysis snapshots older
// than a cutoff to JSONL objects.
type Archiver struct {
	writer domain.BlobWriter
	store  AnalysisArchiveStore
	opts   ArchiverOptions
	logger *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, store AnalysisArchiveStore, opts ArchiverOptions) *Archiver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		writer: writer,
		store:  store,
		opts:   opts,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveAnalyses uploads every snapshot older than before to
// analyses/YYYY/MM/DD/<unix>.jsonl and returns how many were written. Nothing
// is uploaded when there are no such snapshots.
func (a *Archiver) ArchiveAnalyses(ctx context.Context, before time.Time) (int64, error) {
	results, err := a.store.ListBefore(ctx, before, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive analyses query: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(results)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive analyses marshal: %w", err)
	}

	path := archivePath("analyses", before)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive analyses upload: %w", err)
	}

	count := int64(len(results))
	a.logger.InfoContext(ctx, "analyses archived",
		slog.String("path", path),
		slog.Int64("count", count),
	)

	if a.opts.Prune {
		deleted, err := a.store.DeleteBefore(ctx, before)
		if err != nil {
			return count, fmt.Errorf("s3blob: archive analyses prune: %w", err)
		}
		a.logger.InfoContext(ctx, "archived analyses pruned", slog.Int64("deleted", deleted))
	}

	if a.opts.Audit != nil {
		if err := a.opts.Audit.Log(ctx, "archive.analyses", map[string]any{
			"path":   path,
			"count":  count,
			"before": before.UTC().Format(time.RFC3339),
			"pruned": a.opts.Prune,
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive analyses audit log: %w", err)
		}
	}

	return count, nil
}

// archivePath partitions objects by the UTC day of the cutoff:
//
//	analyses/2025/01/31/1738281600.jsonl
func archivePath(kind string, before time.Time) string {
	before = before.UTC()
	return fmt.Sprintf("%s/%s/%d.jsonl", kind, before.Format("2006/01/02"), before.Unix())
}

func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
