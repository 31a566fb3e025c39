// Package handler provides HTTP handlers for all API endpoints. Handlers
// are a thin read/trigger layer over the drop store and the scan/alert
// engines — no business logic lives here.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/alert"
	"github.com/cardwatch/cardwatch-data/internal/api/respond"
	"github.com/cardwatch/cardwatch-data/internal/cache"
	"github.com/cardwatch/cardwatch-data/internal/config"
	"github.com/cardwatch/cardwatch-data/internal/drop"
	"github.com/cardwatch/cardwatch-data/internal/scan"
)

// Deps holds shared dependencies for all endpoint handlers. HealthDB may be
// nil when running without Postgres (memory store).
type Deps struct {
	Store    drop.Store
	Runner   *scan.Runner
	Engine   *alert.Engine
	Cache    *cache.Cache
	Config   *config.Config
	Logger   *slog.Logger
	HealthDB func(ctx context.Context) error
}

// Handler serves all API endpoints.
type Handler struct {
	deps Deps
}

// New creates a Handler with shared dependencies.
func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(false)
	}
	return &Handler{deps: deps}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Cardwatch Data API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.deps.HealthDB == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"database": "in-memory",
		})
		return
	}
	if err := h.deps.HealthDB(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"cache":  h.deps.Cache.Stats(),
	})
}
