package scan

import (
	"context"
	"log/slog"
	"time"
)

// StartWorker runs the scan cycle on its own slow schedule — scanning is
// the expensive half of the system, alerting the cheap one. An immediate
// scan runs on startup, then one per interval. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func StartWorker(ctx context.Context, runner *Runner, interval time.Duration, logger *slog.Logger) {
	logger.Info("Scan worker started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runner.Run(ctx)
	for {
		select {
		case <-ticker.C:
			runner.Run(ctx)
		case <-ctx.Done():
			logger.Info("Scan worker stopped")
			return
		}
	}
}
