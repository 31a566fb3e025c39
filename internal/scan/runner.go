package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/drop"
	"github.com/cardwatch/cardwatch-data/internal/listing"
	"github.com/cardwatch/cardwatch-data/internal/metrics"
)

// Result tracks the outcome of a full scan cycle.
type Result struct {
	SourcesScanned int
	ListingsFound  int
	Rejected       int
	NewDrops       int
	UpdatedDrops   int
	Duration       time.Duration
	Errors         []string
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("sources=%d found=%d rejected=%d new=%d updated=%d errors=%d dur=%s",
		r.SourcesScanned, r.ListingsFound, r.Rejected, r.NewDrops, r.UpdatedDrops,
		len(r.Errors), r.Duration.Round(time.Millisecond))
}

// Runner executes scan cycles: each source's raw records are normalized and
// reconciled into the store. Sources run on a small worker pool; records
// within a source keep their input order.
type Runner struct {
	store   drop.Store
	sources []Source
	workers int
	logger  *slog.Logger
}

func NewRunner(store drop.Store, sources []Source, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, sources: sources, workers: workers, logger: logger}
}

// Run executes one scan cycle across all sources. Per-source and per-record
// failures are counted, never fatal for the cycle.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var result Result

	if len(r.sources) == 0 {
		r.logger.Info("No sources configured, nothing to scan")
		result.Duration = time.Since(start)
		return result
	}

	workers := r.workers
	if workers > len(r.sources) {
		workers = len(r.sources)
	}

	ch := make(chan Source, len(r.sources))
	for _, s := range r.sources {
		ch <- s
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range ch {
				found, rejected, recs, err := r.scanSource(ctx, src)

				mu.Lock()
				result.SourcesScanned++
				result.ListingsFound += found
				result.Rejected += rejected
				for _, rec := range recs {
					if rec.IsNew {
						result.NewDrops++
						metrics.DropsDiscovered.WithLabelValues(rec.Drop.Retailer).Inc()
					} else {
						result.UpdatedDrops++
					}
				}
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", src.Name(), err))
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)
	metrics.ScansTotal.Inc()

	r.logger.Info("Scan cycle complete", "summary", result.Summary())
	return result
}

func (r *Runner) scanSource(ctx context.Context, src Source) (found, rejected int, recs []drop.ReconcileResult, err error) {
	raws, err := src.Search(ctx)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("search: %w", err)
	}
	found = len(raws)
	metrics.ListingsFound.WithLabelValues(src.Name()).Add(float64(found))

	listings := make([]listing.Listing, 0, len(raws))
	for _, raw := range raws {
		l, err := listing.Normalize(raw)
		if err != nil {
			if errors.Is(err, listing.ErrMissingIdentity) {
				rejected++
				metrics.ListingsRejected.Inc()
				continue
			}
			return found, rejected, nil, fmt.Errorf("normalize: %w", err)
		}
		listings = append(listings, l)
	}

	recs, err = drop.Reconcile(ctx, r.store, listings, time.Now(), r.logger)
	if err != nil {
		return found, rejected, recs, fmt.Errorf("reconcile: %w", err)
	}
	return found, rejected, recs, nil
}
