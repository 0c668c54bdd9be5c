package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/infra/buildinfo"
)

// handleStatusSummary handles GET /admin/v1/status/summary.
func (h *Handler) handleStatusSummary(w http.ResponseWriter, r *http.Request) {
	archived, err := h.archive.Count(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	info := buildinfo.Get()
	h.writeJSON(w, r, http.StatusOK, StatusSummaryResponse{
		Version:       info.Version,
		GitCommit:     info.Commit,
		GoVersion:     info.GoVersion,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		LiveTasks:     h.reg.Count(),
		ArchivedCount: archived,
		Goroutines:    runtime.NumGoroutine(),
	})
}

// handleCreateAPIKey handles POST /admin/v1/keys. The plaintext
// secret appears in the response and nowhere else.
func (h *Handler) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	key, secret, err := h.authSvc.CreateAPIKey(r.Context(), req.Name, domain.Role(req.Role), req.RateLimit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("api key created", "key_id", key.KeyID, "role", string(key.Role))
	h.writeJSON(w, r, http.StatusCreated, CreateAPIKeyResponse{
		KeyID:     key.KeyID,
		Secret:    secret,
		Name:      key.Name,
		Role:      string(key.Role),
		RateLimit: key.RateLimit,
		CreatedAt: key.CreatedAtTime(),
	})
}

// handleListAPIKeys handles GET /admin/v1/keys.
func (h *Handler) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.authSvc.ListAPIKeys(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := ListAPIKeysResponse{Keys: make([]APIKeyResponse, 0, len(keys))}
	for _, key := range keys {
		item := APIKeyResponse{
			KeyID:     key.KeyID,
			Name:      key.Name,
			Role:      string(key.Role),
			Enabled:   key.Enabled,
			RateLimit: key.RateLimit,
			CreatedAt: key.CreatedAtTime(),
		}
		if key.LastUsed > 0 {
			item.LastUsed = time.UnixMilli(key.LastUsed).UTC()
		}
		resp.Keys = append(resp.Keys, item)
	}

	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleUpdateAPIKeyStatus handles POST /admin/v1/keys/{key_id}/status.
func (h *Handler) handleUpdateAPIKeyStatus(w http.ResponseWriter, r *http.Request) {
	keyID := r.PathValue("key_id")

	var req UpdateAPIKeyStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.authSvc.SetKeyEnabled(r.Context(), keyID, req.Enabled); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("api key status updated", "key_id", keyID, "enabled", req.Enabled)
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"key_id":  keyID,
		"enabled": req.Enabled,
	})
}

// handleDeleteAPIKey handles DELETE /admin/v1/keys/{key_id}.
func (h *Handler) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID := r.PathValue("key_id")

	if err := h.authSvc.DeleteAPIKey(r.Context(), keyID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("api key deleted", "key_id", keyID)
	h.writeJSON(w, r, http.StatusOK, map[string]string{"key_id": keyID})
}
