package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/report"
)

// ScanHandler serves the latest scan report and the manual scan trigger.
type ScanHandler struct {
	latest    LatestSource
	triggerCh chan<- struct{} // when non-nil, sending triggers one scan
	logger    *slog.Logger
}

// NewScanHandler creates a ScanHandler reading results from latest.
func NewScanHandler(latest LatestSource, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		latest: latest,
		logger: logger.With(slog.String("handler", "scan")),
	}
}

// WithTriggerChannel sets the channel to send on when a trigger is requested.
// The scan loop must receive from this channel to run one cycle.
func (h *ScanHandler) WithTriggerChannel(ch chan<- struct{}) *ScanHandler {
	h.triggerCh = ch
	return h
}

// Latest returns the full report of the most recent scan.
// GET /api/scan/latest
func (h *ScanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	res := h.latest.Latest()
	if res == nil {
		writeError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, report.NewDocument(res))
}

// LatestByType returns the ranked opportunities of one comparison type from
// the most recent scan.
// GET /api/scan/latest/{type}
func (h *ScanHandler) LatestByType(w http.ResponseWriter, r *http.Request) {
	ct := domain.ComparisonType(r.PathValue("type"))
	res := h.latest.Latest()
	if res == nil {
		writeError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}
	doc := report.NewDocument(res)
	for _, c := range doc.Comparisons {
		if c.Type == string(ct) {
			writeJSON(w, http.StatusOK, map[string]any{
				"run_id":       doc.RunID,
				"generated_at": doc.GeneratedAt,
				"comparison":   c,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown comparison type: "+string(ct))
}

// Trigger enqueues one scan. The send is non-blocking so repeated triggers
// collapse into a single pending run.
// POST /api/scan/trigger
func (h *ScanHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.triggerCh == nil {
		writeError(w, http.StatusServiceUnavailable, "scan trigger not available")
		return
	}
	h.logger.InfoContext(r.Context(), "scan trigger requested")
	queued := true
	select {
	case h.triggerCh <- struct{}{}:
	default:
		// already triggered and not yet consumed
		queued = false
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"queued":       queued,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
