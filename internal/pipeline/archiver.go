// Package pipeline runs the analyzer's periodic background jobs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

const (
	archiveLockKey = "archive"
	defaultLockTTL = 10 * time.Minute
)

// Archiver moves analysis snapshots older than the retention window to cold
// storage. When a LockManager is set, only one process archives at a time.
type Archiver struct {
	blobArchiver domain.Archiver
	locks        domain.LockManager
	retention    time.Duration
	lockTTL      time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewArchiver creates an Archiver. locks may be nil.
func NewArchiver(blobArchiver domain.Archiver, locks domain.LockManager, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		blobArchiver: blobArchiver,
		locks:        locks,
		retention:    time.Duration(retentionDays) * 24 * time.Hour,
		lockTTL:      defaultLockTTL,
		logger:       logger.With(slog.String("component", "archiver")),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run executes a single archive pass and returns the number of archived
// rows. It returns domain.ErrLockHeld when another process holds the lock.
func (a *Archiver) Run(ctx context.Context) (int64, error) {
	if a.locks != nil {
		unlock, err := a.locks.Acquire(ctx, archiveLockKey, a.lockTTL)
		if err != nil {
			return 0, err
		}
		defer unlock()
	}

	cutoff := a.now().Add(-a.retention)
	a.logger.InfoContext(ctx, "starting archive run", slog.Time("cutoff", cutoff))

	n, err := a.blobArchiver.ArchiveAnalyses(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("archiving analyses before %v: %w", cutoff, err)
	}
	a.logger.InfoContext(ctx, "archive run complete", slog.Int64("analyses_archived", n))
	return n, nil
}

// RunEvery runs the archiver every interval until ctx is cancelled. Failed
// runs are logged and retried on the next tick.
func (a *Archiver) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("archiver: interval must be positive, got %s", interval)
	}
	a.logger.InfoContext(ctx, "archiver started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			_, err := a.Run(ctx)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrLockHeld):
				a.logger.InfoContext(ctx, "archive skipped, lock held elsewhere")
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				a.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
