package httpserver

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/core/service"
	"github.com/vatlidak/proctree-go/internal/registry"
	"github.com/vatlidak/proctree-go/internal/server/httpserver/handler"
	"github.com/vatlidak/proctree-go/internal/storage"
	"github.com/vatlidak/proctree-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// SnapshotService captures hierarchy snapshots.
	SnapshotService *service.SnapshotService

	// AuthService handles authentication and API key operations.
	AuthService *service.AuthService

	// Registry is the live task hierarchy.
	Registry *registry.Registry

	// Archive persists taken snapshots.
	Archive *storage.Archive

	// Metrics instruments the request surface; nil disables it.
	Metrics *metric.Metrics

	// Logger for request logging.
	Logger *slog.Logger

	// AuthEnabled gates all API key checks.
	AuthEnabled bool

	// MetricsAuthRequired indicates if /metrics requires a valid key.
	MetricsAuthRequired bool

	// DefaultCapacity is the snapshot capacity when the client
	// supplies none.
	DefaultCapacity int

	// PerIPRPS and PerIPBurst bound per-client-IP request rates.
	// Zero disables the limiter.
	PerIPRPS   int
	PerIPBurst int

	// EnableAudit enables per-request audit logging.
	EnableAudit bool
}

// NewRouter creates and configures the HTTP router with all routes
// and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	h := handler.New(handler.Config{
		SnapshotService: cfg.SnapshotService,
		AuthService:     cfg.AuthService,
		Registry:        cfg.Registry,
		Archive:         cfg.Archive,
		Metrics:         cfg.Metrics,
		Logger:          cfg.Logger,
		DefaultCapacity: cfg.DefaultCapacity,
	})

	middlewareCfg := &MiddlewareConfig{
		AuthService: cfg.AuthService,
		Logger:      cfg.Logger,
		AuthEnabled: cfg.AuthEnabled,
	}

	// Shared outer middlewares, first entry outermost.
	outer := []Middleware{RequestID(), Recover(cfg.Logger)}
	if cfg.Metrics != nil {
		outer = append(outer, HTTPMetrics(cfg.Metrics))
	}
	if cfg.EnableAudit {
		outer = append(outer, Audit(cfg.Logger))
	}
	if cfg.PerIPRPS > 0 {
		outer = append(outer, RateLimit(cfg.PerIPRPS, cfg.PerIPBurst))
	}

	observerHandler := Chain(h, append(slices.Clone(outer), Auth(middlewareCfg, domain.RoleObserver))...)
	adminHandler := Chain(h, append(slices.Clone(outer), Auth(middlewareCfg, domain.RoleAdmin))...)

	mux := http.NewServeMux()

	// Health endpoints, no authentication.
	healthHandler := Chain(h, RequestID(), Recover(cfg.Logger))
	mux.Handle("GET /health", healthHandler)
	mux.Handle("GET /ready", healthHandler)

	// Metrics endpoint, exposition format, configurable auth.
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(
			cfg.Metrics.Handler(),
			RequestID(),
			Recover(cfg.Logger),
			MetricsAuth(middlewareCfg, cfg.MetricsAuthRequired),
		))
	}

	// Read endpoints, observer role.
	mux.Handle("GET /v1/snapshot", observerHandler)
	mux.Handle("GET /v1/tasks/{id}", observerHandler)
	mux.Handle("GET /v1/archive/snapshots", observerHandler)
	mux.Handle("GET /v1/archive/snapshots/{id}", observerHandler)

	// Registry mutation endpoints, admin role.
	mux.Handle("POST /v1/tasks", adminHandler)
	mux.Handle("POST /v1/tasks/{id}/exit", adminHandler)
	mux.Handle("POST /v1/tasks/{id}/state", adminHandler)

	// Archive mutation endpoints, admin role.
	mux.Handle("DELETE /v1/archive/snapshots/{id}", adminHandler)
	mux.Handle("POST /v1/archive/prune", adminHandler)

	// Admin status and key management.
	mux.Handle("GET /admin/v1/status/summary", adminHandler)
	mux.Handle("POST /admin/v1/keys", adminHandler)
	mux.Handle("GET /admin/v1/keys", adminHandler)
	mux.Handle("POST /admin/v1/keys/{key_id}/status", adminHandler)
	mux.Handle("DELETE /admin/v1/keys/{key_id}", adminHandler)

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		AuthEnabled:         true,
		MetricsAuthRequired: false,
		DefaultCapacity:     4096,
		PerIPRPS:            50,
		PerIPBurst:          100,
		EnableAudit:         true,
	}
}
