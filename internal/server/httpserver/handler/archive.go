package handler

import (
	"net/http"
	"strconv"
)

// handleListArchive handles GET /v1/archive/snapshots. Entries are
// returned newest first; the limit query parameter caps the count.
func (h *Handler) handleListArchive(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, http.StatusBadRequest, "PT-ARG-1001",
				"limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	entries, err := h.archive.List(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ListArchiveResponse{
		Snapshots: entries,
		Count:     len(entries),
	})
}

// handleGetArchived handles GET /v1/archive/snapshots/{id}.
func (h *Handler) handleGetArchived(w http.ResponseWriter, r *http.Request) {
	snap, err := h.archive.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, SnapshotResponse{
		ID:           snap.ID,
		TakenAt:      snap.TakenAt,
		Records:      snap.Records,
		TotalVisited: snap.TotalVisited,
		Truncated:    snap.Truncated(),
	})
}

// handleDeleteArchived handles DELETE /v1/archive/snapshots/{id}.
func (h *Handler) handleDeleteArchived(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.archive.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("archived snapshot deleted", "snapshot_id", id)
	h.writeJSON(w, r, http.StatusOK, map[string]string{"id": id})
}

// handlePruneArchive handles POST /v1/archive/prune, removing the
// oldest archived snapshots past the requested keep count.
func (h *Handler) handlePruneArchive(w http.ResponseWriter, r *http.Request) {
	var req PruneArchiveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if req.Keep < 0 {
		h.writeError(w, r, http.StatusBadRequest, "PT-ARG-1001",
			"keep must be non-negative", nil)
		return
	}

	removed, err := h.archive.Prune(r.Context(), req.Keep)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	kept, err := h.archive.Count(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("archive pruned", "removed", removed, "kept", kept)
	h.writeJSON(w, r, http.StatusOK, PruneArchiveResponse{
		Removed: removed,
		Kept:    kept,
	})
}
