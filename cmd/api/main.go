// Command api is the Cardwatch Data API server. It serves the drop/stats
// API and runs the scan, alert, listener and maintenance workers.
//
// Usage:
//
//	cardwatch-api
//	API_PORT=8080 cardwatch-api

// @title Cardwatch Data API
// @version 1.0.0
// @description Card drop tracking API: upcoming retail releases across storefronts, with time-windowed release alerts.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/cardwatch/cardwatch-data/internal/alert"
	"github.com/cardwatch/cardwatch-data/internal/api"
	"github.com/cardwatch/cardwatch-data/internal/api/handler"
	"github.com/cardwatch/cardwatch-data/internal/cache"
	"github.com/cardwatch/cardwatch-data/internal/config"
	"github.com/cardwatch/cardwatch-data/internal/db"
	"github.com/cardwatch/cardwatch-data/internal/drop"
	"github.com/cardwatch/cardwatch-data/internal/listener"
	"github.com/cardwatch/cardwatch-data/internal/maintenance"
	"github.com/cardwatch/cardwatch-data/internal/metrics"
	"github.com/cardwatch/cardwatch-data/internal/notify"
	"github.com/cardwatch/cardwatch-data/internal/scan"

	_ "github.com/cardwatch/cardwatch-data/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	metrics.Init()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.InitSchema(ctx); err != nil {
		logger.Error("Failed to apply schema", "error", err)
		os.Exit(1)
	}
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	store := drop.NewPGStore(pool.Pool)
	appCache := cache.New(cfg.CacheEnabled)

	// Notification channels: log sink always on, desktop and email when
	// configured.
	notifier := buildNotifier(cfg, logger)

	// Sources
	defs, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logger.Error("Failed to load sources", "error", err)
		os.Exit(1)
	}
	sources := make([]scan.Source, 0, len(defs))
	for _, def := range defs {
		sources = append(sources, scan.NewFeedSource(def, logger))
	}
	logger.Info("Sources loaded", "count", len(sources), "file", cfg.SourcesFile)

	runner := scan.NewRunner(store, sources, cfg.ScanWorkers, logger)
	engine := alert.NewEngine(store, notifier, logger)

	// Independent scan (slow) and alert (fast) cycles
	go scan.StartWorker(ctx, runner, cfg.ScanInterval, logger)
	go alert.StartWorker(ctx, engine, cfg.AlertInterval, logger)

	// Real-time discovery announcements via LISTEN/NOTIFY
	go listener.Start(ctx, cfg.DatabaseURL, notifier, logger)

	// Maintenance tickers (expiry backstop, event log cleanup)
	go maintenance.Start(ctx, pool.Pool, maintenance.DefaultConfig(), logger)

	// Create router
	h := handler.New(handler.Deps{
		Store:    store,
		Runner:   runner,
		Engine:   engine,
		Cache:    appCache,
		Config:   cfg,
		Logger:   logger,
		HealthDB: pool.HealthCheck,
	})
	router := api.NewRouter(h, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Cardwatch Data API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

func buildNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	channels := notify.Multi{notify.NewLogNotifier(logger)}

	if desktop := notify.NewDesktopNotifier(cfg.DesktopNotify, logger); desktop != nil {
		channels = append(channels, desktop)
		logger.Info("Desktop notifications enabled")
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
		logger.Info("Email notifications enabled", "recipients", len(cfg.EmailTo))
	}

	return channels
}
