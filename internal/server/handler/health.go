package handler

import (
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	latest    LatestSource
	mode      string
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler. latest may be nil.
func NewHealthHandler(latest LatestSource, mode string, startedAt time.Time) *HealthHandler {
	return &HealthHandler{latest: latest, mode: mode, startedAt: startedAt}
}

// HealthCheck responds with liveness plus a short description of the last
// scan, if any.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"mode":           h.mode,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.latest != nil {
		if res := h.latest.Latest(); res != nil {
			body["last_scan"] = map[string]any{
				"run_id":        res.RunID,
				"status":        res.Status(),
				"finished_at":   res.FinishedAt.UTC().Format(time.RFC3339),
				"opportunities": res.TotalOpportunities(),
			}
		}
	}
	writeJSON(w, http.StatusOK, body)
}
