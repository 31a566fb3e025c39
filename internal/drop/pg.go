package drop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardwatch/cardwatch-data/internal/listing"
)

// PGStore is the Postgres-backed Store. Natural-key uniqueness is enforced
// by the UNIQUE(name, retailer, url) constraint; per-key write serialization
// comes from row locks, so disjoint keys never block each other.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a connection pool. Statements named here are registered
// in internal/db on every connection.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// dropColumns is the select list every drop scan uses, in scanDrop order.
const dropColumns = "id, name, retailer, url, price, target_at, status, discovered_at, last_seen_at, notified_tiers"

func (s *PGStore) Upsert(ctx context.Context, l listing.Listing, now time.Time) (Drop, bool, error) {
	row := s.pool.QueryRow(ctx, "drop_upsert",
		l.Name, l.Retailer, l.URL, l.Price, l.TargetAt, now)

	var isNew bool
	d, err := scanDrop(row, &isNew)
	if err != nil {
		return Drop{}, false, fmt.Errorf("upsert drop: %w", err)
	}

	if isNew {
		s.announce(ctx, d)
	}
	return d, isNew, nil
}

// announce publishes a new_drop NOTIFY event so the real-time listener can
// push a discovery notification. Failure is non-fatal: the catch-all is the
// periodic alert cycle.
func (s *PGStore) announce(ctx context.Context, d Drop) {
	payload, err := json.Marshal(map[string]any{
		"id":       d.ID,
		"name":     d.Name,
		"retailer": d.Retailer,
		"url":      d.URL,
	})
	if err != nil {
		return
	}
	_, _ = s.pool.Exec(ctx, "drop_announce", string(payload))
}

func (s *PGStore) Get(ctx context.Context, id int64) (Drop, error) {
	d, err := scanDrop(s.pool.QueryRow(ctx, "drop_by_id", id), nil)
	if errors.Is(err, pgx.ErrNoRows) {
		return Drop{}, ErrNotFound
	}
	if err != nil {
		return Drop{}, fmt.Errorf("get drop %d: %w", id, err)
	}
	return d, nil
}

func (s *PGStore) ListByStatus(ctx context.Context, status Status) ([]Drop, error) {
	rows, err := s.pool.Query(ctx, "drops_by_status", string(status))
	if err != nil {
		return nil, fmt.Errorf("list drops: %w", err)
	}
	return collectDrops(rows)
}

func (s *PGStore) UpcomingForAlert(ctx context.Context) ([]Drop, error) {
	rows, err := s.pool.Query(ctx, "drops_upcoming_for_alert")
	if err != nil {
		return nil, fmt.Errorf("upcoming drops: %w", err)
	}
	return collectDrops(rows)
}

// MarkNotified records a tier firing in one transaction: the conditional
// UPDATE takes the row lock and filters out already-recorded tiers, the
// event append only happens when the update took effect.
func (s *PGStore) MarkNotified(ctx context.Context, dropID int64, tier Tier, firedAt time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin mark notified: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "drop_mark_notified", dropID, string(tier))
	if err != nil {
		return false, fmt.Errorf("mark notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, "event_insert", dropID, string(tier), firedAt); err != nil {
		return false, fmt.Errorf("append notification event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit mark notified: %w", err)
	}
	return true, nil
}

func (s *PGStore) SetStatus(ctx context.Context, dropID int64, status Status) error {
	_, err := s.pool.Exec(ctx, "drop_set_status", dropID, string(status))
	if err != nil {
		return fmt.Errorf("set status %s on drop %d: %w", status, dropID, err)
	}
	return nil
}

func (s *PGStore) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "drop_expire", cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire drops: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) Events(ctx context.Context, dropID int64) ([]Event, error) {
	rows, err := s.pool.Query(ctx, "events_by_drop", dropID)
	if err != nil {
		return nil, fmt.Errorf("events for drop %d: %w", dropID, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var tier string
		if err := rows.Scan(&e.ID, &e.DropID, &tier, &e.FiredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Tier = Tier(tier)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PGStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByRetailer: make(map[string]int)}

	if err := s.pool.QueryRow(ctx, "drop_stats_total").Scan(&stats.Total); err != nil {
		return Stats{}, fmt.Errorf("stats total: %w", err)
	}

	rows, err := s.pool.Query(ctx, "drop_stats_by_retailer")
	if err != nil {
		return Stats{}, fmt.Errorf("stats by retailer: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var retailer string
		var count int
		if err := rows.Scan(&retailer, &count); err != nil {
			return Stats{}, fmt.Errorf("scan retailer count: %w", err)
		}
		stats.ByRetailer[retailer] = count
	}
	return stats, rows.Err()
}

// scanDrop scans a drop row. When isNew is non-nil the row is expected to
// carry a trailing inserted flag (the xmax = 0 trick from the upsert).
func scanDrop(row pgx.Row, isNew *bool) (Drop, error) {
	var d Drop
	var status string
	var tiers []string

	dest := []any{&d.ID, &d.Name, &d.Retailer, &d.URL, &d.Price, &d.TargetAt,
		&status, &d.DiscoveredAt, &d.LastSeenAt, &tiers}
	if isNew != nil {
		dest = append(dest, isNew)
	}
	if err := row.Scan(dest...); err != nil {
		return Drop{}, err
	}

	d.Status = Status(status)
	d.NotifiedTiers = make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		d.NotifiedTiers = append(d.NotifiedTiers, Tier(t))
	}
	return d, nil
}

func collectDrops(rows pgx.Rows) ([]Drop, error) {
	defer rows.Close()
	var drops []Drop
	for rows.Next() {
		d, err := scanDrop(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("scan drop: %w", err)
		}
		drops = append(drops, d)
	}
	return drops, rows.Err()
}
