package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/drop"
	"github.com/cardwatch/cardwatch-data/internal/metrics"
	"github.com/cardwatch/cardwatch-data/internal/notify"
)

// Engine runs alert passes against a store: expire stale drops, evaluate
// tiers, record firings, dispatch payloads.
type Engine struct {
	store    drop.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewEngine(store drop.Store, notifier notify.Notifier, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, notifier: notifier, logger: logger}
}

// RunOnce executes one alert pass and returns how many tiers fired.
//
// Per drop the order is fixed: record the firing (atomic tier + event
// commit), then dispatch. The dispatcher is never invoked inside the store
// transaction, so a slow or failed delivery cannot hold a row lock, and a
// delivery failure never rolls back the bookkeeping — the tier will not be
// retried, a later tier still can fire.
func (e *Engine) RunOnce(ctx context.Context, now time.Time) (int, error) {
	expired, err := e.store.ExpireOlderThan(ctx, now.Add(-expiryAge))
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		e.logger.Info("Expired stale drops", "count", expired)
	}

	drops, err := e.store.UpcomingForAlert(ctx)
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, d := range drops {
		// Cancellation checkpoint: each drop update is independently
		// atomic, so aborting between drops leaves the store valid.
		if err := ctx.Err(); err != nil {
			return fired, err
		}

		if dec := Evaluate(now, d); dec != nil {
			recorded, err := e.store.MarkNotified(ctx, d.ID, dec.Tier, now)
			if err != nil {
				e.logger.Warn("record tier failed", "drop_id", d.ID, "tier", dec.Tier, "error", err)
				continue
			}
			if recorded {
				fired++
				metrics.AlertsFired.WithLabelValues(string(dec.Tier)).Inc()
				e.dispatch(ctx, dec)
			}
		}

		// Past the live window the drop has released; past expiryAge the
		// sweep above will catch it next pass.
		if d.TargetAt != nil && now.Sub(*d.TargetAt) > releaseGrace {
			if err := e.store.SetStatus(ctx, d.ID, drop.StatusReleased); err != nil {
				e.logger.Warn("release transition failed", "drop_id", d.ID, "error", err)
			}
		}
	}
	return fired, nil
}

func (e *Engine) dispatch(ctx context.Context, dec *Decision) {
	payload := notify.Payload{Title: dec.Title, Body: dec.Body, Link: dec.Link}
	if err := e.notifier.Notify(ctx, payload); err != nil {
		// Fire-and-forget: bookkeeping is already committed.
		metrics.DispatchFailures.Inc()
		e.logger.Warn("dispatch failed", "drop_id", dec.DropID, "tier", dec.Tier, "error", err)
		return
	}
	e.logger.Info("Alert dispatched", "drop_id", dec.DropID, "tier", dec.Tier, "title", dec.Title)
}
