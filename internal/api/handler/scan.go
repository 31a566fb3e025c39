package handler

import (
	"net/http"
	"time"

	"github.com/cardwatch/cardwatch-data/internal/alert"
	"github.com/cardwatch/cardwatch-data/internal/api/respond"
)

// TriggerScan runs a full scan cycle followed by an alert pass.
// @Summary Trigger a scan
// @Description Fetches all sources, reconciles listings, then runs an alert pass.
// @Tags scan
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /scan [post]
func (h *Handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	result := h.deps.Runner.Run(r.Context())

	fired := 0
	if h.deps.Engine != nil {
		n, err := h.deps.Engine.RunOnce(r.Context(), time.Now())
		if err != nil {
			h.deps.Logger.Warn("alert pass after scan failed", "error", err)
		}
		fired = n
	}

	// Reads after a manual scan should see the fresh state.
	h.deps.Cache.Invalidate()

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"scanned_count":  result.ListingsFound,
		"new_drops":      result.NewDrops,
		"updated_drops":  result.UpdatedDrops,
		"rejected_count": result.Rejected,
		"alert_count":    fired,
		"errors":         result.Errors,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// GetAlerts previews pending alert decisions without firing them.
// @Summary Preview pending alerts
// @Description Evaluates all upcoming drops against the current time. Read-only: nothing is recorded or dispatched.
// @Tags alerts
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /alerts [get]
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	drops, err := h.deps.Store.UpcomingForAlert(r.Context())
	if err != nil {
		h.deps.Logger.Error("alerts preview failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load drops")
		return
	}

	decisions := alert.Scan(time.Now(), drops)
	if decisions == nil {
		decisions = []alert.Decision{}
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"alerts": decisions,
		"count":  len(decisions),
	})
}
