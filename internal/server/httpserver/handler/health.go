package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health. It reports liveness only.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// handleReady handles GET /ready. The server is ready once the
// registry is serving; a probe lookup of the root sentinel confirms it.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.reg == nil || h.reg.Count() < 1 {
		h.writeError(w, r, http.StatusServiceUnavailable, "PT-SYS-5000", "registry not ready", nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"status": "ready"})
}
