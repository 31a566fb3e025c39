package drop

import (
	"context"
	"errors"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/listing"
)

// ErrNotFound is returned by Get for an unknown drop id.
var ErrNotFound = errors.New("drop not found")

// Store is the durable keyed table of drops. Implementations must enforce
// natural-key uniqueness and serialize writes per key while allowing
// concurrent reads and writes to distinct keys. Every write method is a
// single atomic read-modify-write of one drop's full record.
type Store interface {
	// Upsert inserts a new drop for an unseen natural key, or refreshes the
	// existing one. On update, price and target are only overwritten by
	// non-nil values; discovered_at never changes. Reports whether the drop
	// was newly created.
	Upsert(ctx context.Context, l listing.Listing, now time.Time) (Drop, bool, error)

	// Get returns a drop by surrogate id, or ErrNotFound.
	Get(ctx context.Context, id int64) (Drop, error)

	// ListByStatus returns drops in dashboard order: target ascending with
	// nulls last, most recently discovered first within a target.
	ListByStatus(ctx context.Context, status Status) ([]Drop, error)

	// UpcomingForAlert returns upcoming drops in alert order: target
	// ascending with nulls last, ties broken by discovered_at ascending.
	UpcomingForAlert(ctx context.Context) ([]Drop, error)

	// MarkNotified atomically records a tier firing: adds the tier to the
	// drop's notified set and appends a notification event in the same
	// transaction. Returns false without writing when the tier was already
	// recorded, so replays are no-ops.
	MarkNotified(ctx context.Context, dropID int64, tier Tier, firedAt time.Time) (bool, error)

	// SetStatus transitions a drop's lifecycle status.
	SetStatus(ctx context.Context, dropID int64, status Status) error

	// ExpireOlderThan marks upcoming drops whose target predates cutoff as
	// expired, returning how many transitioned.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Events returns the notification log for a drop, oldest first.
	Events(ctx context.Context, dropID int64) ([]Event, error)

	// Stats returns total and per-retailer drop counts.
	Stats(ctx context.Context) (Stats, error)
}
