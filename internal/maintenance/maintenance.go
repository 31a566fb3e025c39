// Package maintenance runs periodic background tasks as Go tickers. All
// scheduled housekeeping is driven from Go since the API server is already
// a persistent, long-running process (required for LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	ExpiryInterval  time.Duration // Backstop sweep for stale upcoming drops
	CleanupInterval time.Duration // Purge notification events of long-dead drops
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		ExpiryInterval:  1 * time.Hour,
		CleanupInterval: 24 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"expiry", cfg.ExpiryInterval,
		"cleanup", cfg.CleanupInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Expiry: backstop for the alert engine's own sweep, catches drops
	// while the alert worker is wedged or disabled.
	if cfg.ExpiryInterval > 0 {
		t := time.NewTicker(cfg.ExpiryInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { expireSweep(ctx, pool, logger) })
	}

	// Cleanup: trim the notification log for drops that expired long ago.
	// Drops themselves are never deleted here.
	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, pool, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

func expireSweep(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		UPDATE drops SET status = 'expired'
		WHERE status = 'upcoming'
		  AND target_at IS NOT NULL
		  AND target_at < NOW() - INTERVAL '24 hours'`)
	if err != nil {
		logger.Warn("Expiry sweep failed", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Expiry sweep: expired drops", "count", tag.RowsAffected())
	}
}

func cleanup(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM notification_events e
		USING drops d
		WHERE d.id = e.drop_id
		  AND d.status = 'expired'
		  AND d.last_seen_at < NOW() - INTERVAL '90 days'`)
	if err != nil {
		logger.Warn("Cleanup: failed to purge old notification events", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: purged old notification events", "count", tag.RowsAffected())
	}
}
