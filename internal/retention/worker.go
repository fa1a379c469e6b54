// Package retention expires old conversation sessions in the background.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrcorrales01-hub/my-aura-sub004/internal/shared"
)

// DefaultInterval is how often the worker sweeps.
const DefaultInterval = 5 * time.Minute

// Sweeper deletes sessions created before a cutoff.
type Sweeper interface {
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Start runs a background goroutine that deletes sessions older than maxAge every interval
// until ctx is done. A non-positive maxAge disables the worker.
func Start(ctx context.Context, repo Sweeper, maxAge, interval time.Duration) {
	if maxAge <= 0 {
		slog.Info("Session retention disabled")
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", interval, "max_age", maxAge)

		for {
			select {
			case <-ticker.C:
				if _, err := Sweep(ctx, repo, time.Now().Add(-maxAge)); err != nil {
					slog.Error("Retention sweep failed", "error", err)
				}
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep deletes sessions created before cutoff, retrying with exponential backoff while
// SQLite reports the database busy.
func Sweep(ctx context.Context, repo Sweeper, cutoff time.Time) (int64, error) {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; ; i++ {
		n, err := repo.DeleteSessionsBefore(ctx, cutoff)
		if err == nil {
			if n > 0 {
				slog.Info("Retention sweep removed sessions", "count", n, "cutoff", cutoff)
			}
			return n, nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			return 0, fmt.Errorf("retention sweep after %d attempts: %w", i+1, err)
		}

		delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
		slog.Debug("Retention sweep hit a locked database, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
	}
}
