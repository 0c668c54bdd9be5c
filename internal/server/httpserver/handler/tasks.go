package handler

import (
	"net/http"

	"github.com/vatlidak/proctree-go/internal/core/domain"
)

// handleGetTask handles GET /v1/tasks/{id}.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseTaskID(r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	rec, err := h.reg.Lookup(id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, rec)
}

// handleSpawnTask handles POST /v1/tasks. It creates a task in the
// mirrored registry; no OS process is started.
func (h *Handler) handleSpawnTask(w http.ResponseWriter, r *http.Request) {
	var req SpawnTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if req.Label == "" {
		h.writeError(w, r, http.StatusBadRequest, "PT-ARG-1002", "label is required", nil)
		return
	}

	parent := domain.TaskID(req.ParentID)
	if parent.IsNone() {
		parent = domain.RootTaskID
	}

	state := domain.StateRunnable
	if req.State != "" {
		parsed, ok := domain.ParseTaskState(req.State)
		if !ok {
			h.writeError(w, r, http.StatusBadRequest, "PT-ARG-1001",
				"unknown state "+req.State, nil)
			return
		}
		state = parsed
	}

	id, err := h.reg.Spawn(parent, domain.TruncateLabel(req.Label), req.OwnerID, state)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("task spawned", "task_id", id.String(), "parent_id", parent.String())
	h.writeJSON(w, r, http.StatusCreated, SpawnTaskResponse{
		ID:       uint64(id),
		ParentID: uint64(parent),
	})
}

// handleExitTask handles POST /v1/tasks/{id}/exit. Children of the
// exited task are reparented to the root sentinel.
func (h *Handler) handleExitTask(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseTaskID(r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.reg.Exit(id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("task exited", "task_id", id.String())
	h.writeJSON(w, r, http.StatusOK, map[string]any{"id": uint64(id)})
}

// handleSetTaskState handles POST /v1/tasks/{id}/state.
func (h *Handler) handleSetTaskState(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseTaskID(r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	var req SetTaskStateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	state, ok := domain.ParseTaskState(req.State)
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, "PT-ARG-1001",
			"unknown state "+req.State, nil)
		return
	}

	if err := h.reg.SetState(id, state); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"id":    uint64(id),
		"state": string(state),
	})
}
