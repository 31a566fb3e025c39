package alert

import (
	"context"
	"log/slog"
	"time"
)

// StartWorker runs the alert cycle on its own schedule, independent of the
// scan cycle. An immediate pass runs on startup, then one per interval.
// Failures are transient: log and resume on the next tick. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func StartWorker(ctx context.Context, engine *Engine, interval time.Duration, logger *slog.Logger) {
	logger.Info("Alert worker started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runPass(ctx, engine, logger)
	for {
		select {
		case <-ticker.C:
			runPass(ctx, engine, logger)
		case <-ctx.Done():
			logger.Info("Alert worker stopped")
			return
		}
	}
}

func runPass(ctx context.Context, engine *Engine, logger *slog.Logger) {
	fired, err := engine.RunOnce(ctx, time.Now())
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("alert pass failed", "error", err)
		}
		return
	}
	if fired > 0 {
		logger.Info("Alert pass complete", "fired", fired)
	}
}
