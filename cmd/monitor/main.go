// Command monitor is the Cardwatch drop monitoring CLI. It runs the same
// scan and alert cycles as the API server, without the HTTP surface.
//
// Usage:
//
//	cardwatch-monitor scan
//	cardwatch-monitor alerts
//	cardwatch-monitor watch --scan-hours 6 --alert-minutes 15
//	cardwatch-monitor notify test --title "Hello"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cardwatch/cardwatch-data/internal/alert"
	"github.com/cardwatch/cardwatch-data/internal/config"
	"github.com/cardwatch/cardwatch-data/internal/db"
	"github.com/cardwatch/cardwatch-data/internal/drop"
	"github.com/cardwatch/cardwatch-data/internal/notify"
	"github.com/cardwatch/cardwatch-data/internal/scan"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "cardwatch-monitor",
		Short: "Cardwatch drop monitoring CLI",
	}

	root.AddCommand(scanCmd())
	root.AddCommand(alertsCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(notifyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// scan command
// --------------------------------------------------------------------------

func scanCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan pass over all configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				runner, err := buildRunner(cfg, pool, workers)
				if err != nil {
					return err
				}
				start := time.Now()
				result := runner.Run(ctx)
				logger.Info("Scan finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("scan error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent source workers (0 = from config)")
	return cmd
}

// --------------------------------------------------------------------------
// alerts command
// --------------------------------------------------------------------------

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Run one alert evaluation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				engine := alert.NewEngine(drop.NewPGStore(pool.Pool), buildNotifier(cfg), logger)
				start := time.Now()
				fired, err := engine.RunOnce(ctx, time.Now())
				if err != nil {
					return err
				}
				logger.Info("Alert pass finished",
					"fired", fired,
					"duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// watch command
// --------------------------------------------------------------------------

func watchCmd() *cobra.Command {
	var scanHours, alertMinutes int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run scan and alert cycles continuously until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				runner, err := buildRunner(cfg, pool, 0)
				if err != nil {
					return err
				}
				engine := alert.NewEngine(drop.NewPGStore(pool.Pool), buildNotifier(cfg), logger)

				scanInterval := cfg.ScanInterval
				if scanHours > 0 {
					scanInterval = time.Duration(scanHours) * time.Hour
				}
				alertInterval := cfg.AlertInterval
				if alertMinutes > 0 {
					alertInterval = time.Duration(alertMinutes) * time.Minute
				}

				go scan.StartWorker(ctx, runner, scanInterval, logger)
				go alert.StartWorker(ctx, engine, alertInterval, logger)

				logger.Info("Watching for drops",
					"scan_interval", scanInterval,
					"alert_interval", alertInterval)
				<-ctx.Done()
				logger.Info("Stopped")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&scanHours, "scan-hours", 0, "Scan interval in hours (0 = from config)")
	cmd.Flags().IntVar(&alertMinutes, "alert-minutes", 0, "Alert interval in minutes (0 = from config)")
	return cmd
}

// --------------------------------------------------------------------------
// notify command
// --------------------------------------------------------------------------

func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification channel utilities",
	}
	cmd.AddCommand(notifyTestCmd())
	return cmd
}

func notifyTestCmd() *cobra.Command {
	var title, body string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test notification through all configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			notifier := buildNotifier(cfg)
			if err := notifier.Notify(ctx, notify.Payload{Title: title, Body: body}); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			logger.Info("Test notification sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "Cardwatch test", "Notification title")
	cmd.Flags().StringVar(&body, "body", "Notification channels are working.", "Notification body")
	return cmd
}

// buildRunner creates a scan runner over the configured sources.
func buildRunner(cfg *config.Config, pool *db.Pool, workers int) (*scan.Runner, error) {
	defs, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	sources := make([]scan.Source, 0, len(defs))
	for _, def := range defs {
		sources = append(sources, scan.NewFeedSource(def, logger))
	}
	if workers <= 0 {
		workers = cfg.ScanWorkers
	}
	return scan.NewRunner(drop.NewPGStore(pool.Pool), sources, workers, logger), nil
}

// buildNotifier assembles channels based on configuration.
func buildNotifier(cfg *config.Config) notify.Notifier {
	channels := notify.Multi{notify.NewLogNotifier(logger)}
	if desktop := notify.NewDesktopNotifier(cfg.DesktopNotify, logger); desktop != nil {
		channels = append(channels, desktop)
	}
	if email := notify.NewEmailNotifier(notify.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
		To:       cfg.EmailTo,
	}); email != nil {
		channels = append(channels, email)
	}
	return channels
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runMonitor handles config loading, DB connection, and context cancellation.
func runMonitor(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.InitSchema(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return fn(ctx, cfg, pool)
}
