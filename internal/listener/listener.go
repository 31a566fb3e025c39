// Package listener provides a Postgres LISTEN/NOTIFY consumer for real-time
// discovery announcements. It holds a dedicated pgx connection (not from
// the pool) listening on the `new_drop` channel.
//
// When reconciliation inserts a previously unseen drop, the store fires
// pg_notify and this consumer pushes a discovery notification immediately,
// without waiting for the next alert cycle.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cardwatch/cardwatch-data/internal/notify"
)

const (
	channel          = "new_drop"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// DropEvent is the JSON payload from pg_notify('new_drop', ...).
type DropEvent struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Retailer string `json:"retailer"`
	URL      string `json:"url"`
}

// Start opens a dedicated connection and listens on the new_drop channel.
// It reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, notifier notify.Notifier, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, notifier, logger)
		if ctx.Err() != nil {
			logger.Info("Drop listener stopped (context cancelled)")
			return
		}

		logger.Error("Drop listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, notifier notify.Notifier, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Drop listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event DropEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse drop event",
				"payload", notification.Payload, "error", err)
			continue
		}

		logger.Info("New drop discovered",
			"drop_id", event.ID, "name", event.Name, "retailer", event.Retailer)

		payload := notify.Payload{
			Title: "New drop discovered",
			Body:  fmt.Sprintf("%s at %s", event.Name, event.Retailer),
			Link:  event.URL,
		}
		if err := notifier.Notify(ctx, payload); err != nil {
			logger.Warn("Discovery notification failed", "drop_id", event.ID, "error", err)
		}
	}
}
