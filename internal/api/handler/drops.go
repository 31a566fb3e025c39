package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cardwatch/cardwatch-data/internal/api/respond"
	"github.com/cardwatch/cardwatch-data/internal/cache"
	"github.com/cardwatch/cardwatch-data/internal/drop"
)

// ListDrops returns all drops with a given status.
// @Summary List drops
// @Description Returns tracked drops filtered by status, target date ascending.
// @Tags drops
// @Produce json
// @Param status query string false "Drop status" Enums(upcoming, released, expired) default(upcoming)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /drops [get]
func (h *Handler) ListDrops(w http.ResponseWriter, r *http.Request) {
	status := drop.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = drop.StatusUpcoming
	}
	if !drop.ValidStatus(status) {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_STATUS",
			"status must be one of upcoming, released, expired")
		return
	}

	cacheKey := fmt.Sprintf("drops:%s", status)
	if data, etag, ok := h.deps.Cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLDrops, true)
		return
	}

	drops, err := h.deps.Store.ListByStatus(r.Context(), status)
	if err != nil {
		h.deps.Logger.Error("list drops failed", "status", status, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to list drops")
		return
	}
	if drops == nil {
		drops = []drop.Drop{}
	}

	data, err := json.Marshal(map[string]interface{}{
		"drops": drops,
		"count": len(drops),
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode drops")
		return
	}

	etag := h.deps.Cache.Set(cacheKey, data, cache.TTLDrops)
	respond.WriteJSON(w, data, etag, cache.TTLDrops, false)
}

// GetDrop returns a single drop with its notification log.
// @Summary Get drop
// @Tags drops
// @Produce json
// @Param dropID path int true "Drop ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /drops/{dropID} [get]
func (h *Handler) GetDrop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "dropID"), 10, 64)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "Drop ID must be an integer")
		return
	}

	d, err := h.deps.Store.Get(r.Context(), id)
	if errors.Is(err, drop.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Drop not found")
		return
	}
	if err != nil {
		h.deps.Logger.Error("get drop failed", "drop_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load drop")
		return
	}

	events, err := h.deps.Store.Events(r.Context(), id)
	if err != nil {
		h.deps.Logger.Warn("load events failed", "drop_id", id, "error", err)
	}
	if events == nil {
		events = []drop.Event{}
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"drop":          d,
		"notifications": events,
	})
}

// GetStats returns drop counts overall and per retailer.
// @Summary Drop statistics
// @Tags stats
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "stats"
	if data, etag, ok := h.deps.Cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLStats, true)
		return
	}

	stats, err := h.deps.Store.Stats(r.Context())
	if err != nil {
		h.deps.Logger.Error("stats failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load stats")
		return
	}

	data, err := json.Marshal(map[string]interface{}{"stats": stats})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode stats")
		return
	}

	etag := h.deps.Cache.Set(cacheKey, data, cache.TTLStats)
	respond.WriteJSON(w, data, etag, cache.TTLStats, false)
}
