package handler

import (
	"time"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/storage"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses
// Prometheus exposition format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// SnapshotResponse is the response body for GET /v1/snapshot.
type SnapshotResponse struct {
	ID           string              `json:"id"`
	TakenAt      time.Time           `json:"taken_at"`
	Records      []domain.TaskRecord `json:"records"`
	TotalVisited int                 `json:"total_visited"`
	Truncated    bool                `json:"truncated"`
	Archived     bool                `json:"archived,omitempty"`
}

// SpawnTaskRequest is the request body for POST /v1/tasks.
type SpawnTaskRequest struct {
	ParentID uint64 `json:"parent_id"`
	Label    string `json:"label"`
	OwnerID  uint32 `json:"owner_id,omitempty"`
	State    string `json:"state,omitempty"`
}

// SpawnTaskResponse is the response body for POST /v1/tasks.
type SpawnTaskResponse struct {
	ID       uint64 `json:"id"`
	ParentID uint64 `json:"parent_id"`
}

// SetTaskStateRequest is the request body for POST /v1/tasks/{id}/state.
type SetTaskStateRequest struct {
	State string `json:"state"`
}

// ListArchiveResponse is the response body for GET /v1/archive/snapshots.
type ListArchiveResponse struct {
	Snapshots []storage.ArchiveEntry `json:"snapshots"`
	Count     int                    `json:"count"`
}

// PruneArchiveRequest is the request body for POST /v1/archive/prune.
type PruneArchiveRequest struct {
	Keep int `json:"keep"`
}

// PruneArchiveResponse is the response body for POST /v1/archive/prune.
type PruneArchiveResponse struct {
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
}

// StatusSummaryResponse is the response body for GET /admin/v1/status/summary.
type StatusSummaryResponse struct {
	Version       string `json:"version"`
	GitCommit     string `json:"git_commit"`
	GoVersion     string `json:"go_version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	LiveTasks     int    `json:"live_tasks"`
	ArchivedCount int    `json:"archived_count"`
	Goroutines    int    `json:"goroutines"`
}

// CreateAPIKeyRequest is the request body for POST /admin/v1/keys.
type CreateAPIKeyRequest struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	RateLimit int    `json:"rate_limit,omitempty"`
}

// CreateAPIKeyResponse is the response body for POST /admin/v1/keys.
// Secret is the plaintext secret, returned only here.
type CreateAPIKeyResponse struct {
	KeyID     string    `json:"key_id"`
	Secret    string    `json:"secret"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	RateLimit int       `json:"rate_limit"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKeyResponse represents an API key in list responses, without
// secret material.
type APIKeyResponse struct {
	KeyID     string    `json:"key_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Enabled   bool      `json:"enabled"`
	RateLimit int       `json:"rate_limit"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used,omitempty"`
}

// ListAPIKeysResponse is the response body for GET /admin/v1/keys.
type ListAPIKeysResponse struct {
	Keys []APIKeyResponse `json:"keys"`
}

// UpdateAPIKeyStatusRequest is the request body for
// POST /admin/v1/keys/{key_id}/status.
type UpdateAPIKeyStatusRequest struct {
	Enabled bool `json:"enabled"`
}
