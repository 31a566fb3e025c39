// Package notify is the delivery boundary for alerts. The engine only
// depends on the Notifier capability; which channels are behind it (desktop,
// email, log) is wiring decided in cmd.
//
// Delivery is fire-and-forget from the engine's point of view: a failed
// channel is logged and never rolls back tier bookkeeping.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Payload is a fully-formed alert ready for any channel.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Link  string `json:"link"`
}

// Notifier delivers a payload to one channel.
type Notifier interface {
	Notify(ctx context.Context, p Payload) error
}

// --------------------------------------------------------------------------
// Log sink
// --------------------------------------------------------------------------

// LogNotifier writes alerts to the structured log. Always available; the
// default channel when nothing else is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, p Payload) error {
	n.logger.Info("ALERT", "title", p.Title, "body", p.Body, "link", p.Link)
	return nil
}

// --------------------------------------------------------------------------
// Fan-out
// --------------------------------------------------------------------------

// Multi fans a payload out to every channel. All channels are attempted;
// errors are joined so one dead channel cannot mask a working one.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, p Payload) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
