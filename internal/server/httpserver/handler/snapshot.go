package handler

import (
	"net/http"
	"strconv"
	"time"
)

// handleSnapshot handles GET /v1/snapshot.
//
// Query parameters:
//   - capacity: maximum records to capture (default from configuration)
//   - archive:  "true" persists the snapshot before responding
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	capacity := h.defaultCapacity
	if raw := r.URL.Query().Get("capacity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "PT-SNAP-4001",
				"capacity must be an integer", nil)
			return
		}
		capacity = n
	}

	start := time.Now()
	snap, err := h.snapshotSvc.Snapshot(r.Context(), capacity)
	if h.metrics != nil {
		h.metrics.ObserveSnapshot(snap, time.Since(start), err)
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	archived := false
	if r.URL.Query().Get("archive") == "true" {
		if err := h.archive.Save(r.Context(), snap); err != nil {
			h.logger.Error("failed to archive snapshot",
				"snapshot_id", snap.ID, "error", err)
			h.handleServiceError(w, r, err)
			return
		}
		archived = true
	}

	h.writeJSON(w, r, http.StatusOK, SnapshotResponse{
		ID:           snap.ID,
		TakenAt:      snap.TakenAt,
		Records:      snap.Records,
		TotalVisited: snap.TotalVisited,
		Truncated:    snap.Truncated(),
		Archived:     archived,
	})
}
