package drop

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/listing"
)

// ReconcileResult pairs a reconciled drop with whether it was newly created.
type ReconcileResult struct {
	Drop  Drop
	IsNew bool
}

// Reconcile merges a batch of normalized listings into the store in input
// order. Each listing is an independent atomic upsert, so a cancelled or
// partially failed batch leaves the store valid; the last write for a key
// within the batch wins. Per-listing failures are logged and skipped, never
// aborting the batch.
func Reconcile(ctx context.Context, store Store, listings []listing.Listing, now time.Time, logger *slog.Logger) ([]ReconcileResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]ReconcileResult, 0, len(listings))
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		d, isNew, err := store.Upsert(ctx, l, now)
		if err != nil {
			logger.Warn("reconcile upsert failed",
				"name", l.Name, "retailer", l.Retailer, "error", err)
			continue
		}
		results = append(results, ReconcileResult{Drop: d, IsNew: isNew})
	}
	return results, nil
}
