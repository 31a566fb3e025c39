// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap, and health checking.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardwatch/cardwatch-data/internal/config"
)

//go:embed schema.sql
var schema string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// InitSchema applies the embedded schema. All statements are idempotent
// (CREATE IF NOT EXISTS), so this runs on every startup.
func (p *Pool) InitSchema(ctx context.Context) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the store and API
// layers use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Store: reconciliation upsert. COALESCE keeps known price/target
		// when the incoming listing has none; xmax = 0 distinguishes a
		// fresh insert from a conflict update.
		"drop_upsert": `
			INSERT INTO drops (name, retailer, url, price, target_at, status, discovered_at, last_seen_at)
			VALUES ($1, $2, $3, $4, $5, 'upcoming', $6, $6)
			ON CONFLICT (name, retailer, url) DO UPDATE SET
				price        = COALESCE(EXCLUDED.price, drops.price),
				target_at    = COALESCE(EXCLUDED.target_at, drops.target_at),
				last_seen_at = EXCLUDED.last_seen_at
			RETURNING id, name, retailer, url, price, target_at, status,
			          discovered_at, last_seen_at, notified_tiers, (xmax = 0) AS inserted`,

		// Store: lookups
		"drop_by_id": `
			SELECT id, name, retailer, url, price, target_at, status,
			       discovered_at, last_seen_at, notified_tiers
			FROM drops WHERE id = $1`,
		"drops_by_status": `
			SELECT id, name, retailer, url, price, target_at, status,
			       discovered_at, last_seen_at, notified_tiers
			FROM drops WHERE status = $1
			ORDER BY target_at ASC NULLS LAST, discovered_at DESC`,
		"drops_upcoming_for_alert": `
			SELECT id, name, retailer, url, price, target_at, status,
			       discovered_at, last_seen_at, notified_tiers
			FROM drops WHERE status = 'upcoming'
			ORDER BY target_at ASC NULLS LAST, discovered_at ASC`,

		// Store: alert bookkeeping. The conditional update is the
		// at-most-once guard: zero rows affected means the tier already
		// fired for this drop.
		"drop_mark_notified": `
			UPDATE drops
			SET notified_tiers = array_append(notified_tiers, $2)
			WHERE id = $1 AND NOT ($2 = ANY(notified_tiers))`,
		"event_insert": `
			INSERT INTO notification_events (drop_id, tier, fired_at)
			VALUES ($1, $2, $3)`,
		"events_by_drop": `
			SELECT id, drop_id, tier, fired_at
			FROM notification_events WHERE drop_id = $1
			ORDER BY fired_at ASC, id ASC`,

		// Store: lifecycle
		"drop_set_status": "UPDATE drops SET status = $2 WHERE id = $1",
		"drop_expire": `
			UPDATE drops SET status = 'expired'
			WHERE status = 'upcoming' AND target_at IS NOT NULL AND target_at < $1`,

		// Store: stats
		"drop_stats_total":       "SELECT COUNT(*) FROM drops",
		"drop_stats_by_retailer": "SELECT retailer, COUNT(*) FROM drops GROUP BY retailer",

		// Real-time announcements
		"drop_announce": "SELECT pg_notify('new_drop', $1)",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
