package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// DesktopNotifier sends native desktop notifications through the platform's
// own tooling. Nil-safe: when disabled, all methods are no-ops.
type DesktopNotifier struct {
	logger *slog.Logger
}

// NewDesktopNotifier returns nil when disabled.
func NewDesktopNotifier(enabled bool, logger *slog.Logger) *DesktopNotifier {
	if !enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DesktopNotifier{logger: logger}
}

func (n *DesktopNotifier) Notify(ctx context.Context, p Payload) error {
	if n == nil {
		return nil
	}

	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", p.Body, p.Title)
		return run(ctx, "osascript", "-e", script)
	case "linux":
		return run(ctx, "notify-send", "-t", "10000", p.Title, p.Body)
	default:
		// No native channel wired for this platform; fall back to the log.
		n.logger.Info("desktop notification (no native channel)",
			"os", runtime.GOOS, "title", p.Title, "body", p.Body)
		return nil
	}
}

func run(ctx context.Context, name string, args ...string) error {
	if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
