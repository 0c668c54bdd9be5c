package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/core/service"
	"github.com/vatlidak/proctree-go/internal/registry"
	"github.com/vatlidak/proctree-go/internal/storage"
	"github.com/vatlidak/proctree-go/internal/telemetry/metric"
)

// Config carries the dependencies of the handler.
type Config struct {
	SnapshotService *service.SnapshotService
	AuthService     *service.AuthService
	Registry        *registry.Registry
	Archive         *storage.Archive
	Metrics         *metric.Metrics
	Logger          *slog.Logger

	// DefaultCapacity is used when GET /v1/snapshot carries no
	// capacity parameter.
	DefaultCapacity int
}

// Handler routes requests to the endpoint handlers.
type Handler struct {
	snapshotSvc     *service.SnapshotService
	authSvc         *service.AuthService
	reg             *registry.Registry
	archive         *storage.Archive
	metrics         *metric.Metrics
	logger          *slog.Logger
	defaultCapacity int
	startedAt       time.Time
	mux             *http.ServeMux
}

// New creates a new Handler with the given dependencies.
func New(cfg Config) *Handler {
	h := &Handler{
		snapshotSvc:     cfg.SnapshotService,
		authSvc:         cfg.AuthService,
		reg:             cfg.Registry,
		archive:         cfg.Archive,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		defaultCapacity: cfg.DefaultCapacity,
		startedAt:       time.Now(),
		mux:             http.NewServeMux(),
	}
	if h.defaultCapacity < 1 {
		h.defaultCapacity = 4096
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints (no auth required)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Snapshot endpoint
	h.mux.HandleFunc("GET /v1/snapshot", h.handleSnapshot)

	// Task endpoints
	h.mux.HandleFunc("GET /v1/tasks/{id}", h.handleGetTask)
	h.mux.HandleFunc("POST /v1/tasks", h.handleSpawnTask)
	h.mux.HandleFunc("POST /v1/tasks/{id}/exit", h.handleExitTask)
	h.mux.HandleFunc("POST /v1/tasks/{id}/state", h.handleSetTaskState)

	// Archive endpoints
	h.mux.HandleFunc("GET /v1/archive/snapshots", h.handleListArchive)
	h.mux.HandleFunc("GET /v1/archive/snapshots/{id}", h.handleGetArchived)
	h.mux.HandleFunc("DELETE /v1/archive/snapshots/{id}", h.handleDeleteArchived)
	h.mux.HandleFunc("POST /v1/archive/prune", h.handlePruneArchive)

	// Admin endpoints
	h.mux.HandleFunc("GET /admin/v1/status/summary", h.handleStatusSummary)

	// API Key management endpoints
	h.mux.HandleFunc("POST /admin/v1/keys", h.handleCreateAPIKey)
	h.mux.HandleFunc("GET /admin/v1/keys", h.handleListAPIKeys)
	h.mux.HandleFunc("POST /admin/v1/keys/{key_id}/status", h.handleUpdateAPIKeyStatus)
	h.mux.HandleFunc("DELETE /admin/v1/keys/{key_id}", h.handleDeleteAPIKey)
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// getRequestID extracts the request ID set by the middleware.
func getRequestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrBadRequest.WithDetails(err.Error())
	}
	return nil
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "PT-SYS-5000", "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4001"), strings.HasSuffix(code, "-4003"), strings.HasSuffix(code, "-4000"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"), strings.HasSuffix(code, "-4012"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasPrefix(code, "PT-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
