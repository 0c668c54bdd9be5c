package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/core/service"
	"github.com/vatlidak/proctree-go/internal/telemetry/metric"
	"github.com/vatlidak/proctree-go/pkg/cmap"
)

// Context keys for request-scoped values.
type contextKey string

const (
	// ContextKeyRequestID is the context key for request ID.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyAPIKey is the context key for authenticated API key.
	ContextKeyAPIKey contextKey = "api_key"

	// ContextKeyStartTime is the context key for request start time.
	ContextKeyStartTime contextKey = "start_time"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware in
// the list is the outermost, executed first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// MiddlewareConfig holds configuration shared by the middlewares.
type MiddlewareConfig struct {
	AuthService *service.AuthService
	Logger      *slog.Logger

	// AuthEnabled disables API key checks entirely when false.
	AuthEnabled bool
}

// RequestID assigns a unique ID to each request, honoring an ID the
// client already supplied. The ID travels in the context, the request
// header, and the X-Request-ID response header.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = "req-" + strings.ToLower(ulid.Make().String())
				r.Header.Set("X-Request-ID", requestID)
			}

			ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Auth authenticates requests using API key credentials and requires
// the given role. When cfg.AuthEnabled is false the check is skipped
// and requests proceed anonymously.
func Auth(cfg *MiddlewareConfig, required domain.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.AuthEnabled {
				next.ServeHTTP(w, r)
				return
			}

			keyID, keySecret := extractAPIKeyCredentials(r)
			if keyID == "" || keySecret == "" {
				writeAuthError(w, "PT-AUTH-4010", "api key not provided")
				return
			}

			key, err := cfg.AuthService.ValidateAPIKey(r.Context(), keyID, keySecret)
			if err != nil {
				writeAuthError(w, domain.GetErrorCode(err), err.Error())
				return
			}

			if err := cfg.AuthService.CheckPermission(key, required); err != nil {
				writeAuthError(w, "PT-AUTH-4030", "permission denied, "+string(required)+" role required")
				return
			}

			if err := cfg.AuthService.CheckRateLimit(key.KeyID, key.RateLimit); err != nil {
				w.Header().Set("Retry-After", "1")
				writeAuthError(w, "PT-AUTH-4290", "rate limit exceeded")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAPIKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsAuth guards the metrics endpoint. Any valid enabled key is
// accepted; when authRequired is false access is unauthenticated.
func MetricsAuth(cfg *MiddlewareConfig, authRequired bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authRequired || !cfg.AuthEnabled {
				next.ServeHTTP(w, r)
				return
			}

			keyID, keySecret := extractAPIKeyCredentials(r)
			if keyID == "" || keySecret == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			if _, err := cfg.AuthService.ValidateAPIKey(r.Context(), keyID, keySecret); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies per-client-IP rate limiting with a token bucket
// per IP. rps is the sustained budget, burst the bucket size.
func RateLimit(rps, burst int) Middleware {
	if burst < rps {
		burst = rps
	}
	limiters := cmap.New[string, *rate.Limiter]()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			limiter, _ := limiters.GetOrSet(ip, rate.NewLimiter(rate.Limit(rps), burst))
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeAuthError(w, "PT-SYS-4290", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPMetrics records request counts and latencies, labeled by the
// matched route pattern so path parameters don't explode cardinality.
func HTTPMetrics(m *metric.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := r.Pattern
			if route == "" {
				route = r.URL.Path
			}
			m.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}

// Audit logs one line per completed request.
func Audit(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			requestID, _ := r.Context().Value(ContextKeyRequestID).(string)
			startTime, _ := r.Context().Value(ContextKeyStartTime).(time.Time)
			key := GetAPIKeyFromContext(r.Context())

			attrs := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(startTime).Milliseconds(),
				"client_ip", getClientIP(r),
			}
			if key != nil {
				attrs = append(attrs, "key_id", key.KeyID, "role", string(key.Role))
			}

			switch {
			case wrapped.statusCode >= 500:
				logger.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				logger.Warn("request completed with client error", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
		})
	}
}

// Recover converts panics into 500 responses.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID, _ := r.Context().Value(ContextKeyRequestID).(string)
					logger.Error("panic recovered",
						"request_id", requestID,
						"error", err,
						"path", r.URL.Path,
					)

					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("X-Error-Code", "PT-SYS-5000")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"code":    "PT-SYS-5000",
						"message": "internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKeyCredentials extracts API key credentials from request
// headers. It supports two formats:
//  1. Authorization: Bearer <key_id>:<key_secret>
//  2. X-API-Key-ID + X-API-Key headers
func extractAPIKeyCredentials(r *http.Request) (keyID, keySecret string) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		parts := strings.SplitN(token, ":", 2)
		if len(parts) == 2 {
			return parts[0], parts[1]
		}
	}

	return r.Header.Get("X-API-Key-ID"), r.Header.Get("X-API-Key")
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// GetAPIKeyFromContext retrieves the authenticated API key from context.
func GetAPIKeyFromContext(ctx context.Context) *domain.APIKey {
	if key, ok := ctx.Value(ContextKeyAPIKey).(*domain.APIKey); ok {
		return key
	}
	return nil
}

// GetRequestIDFromContext retrieves the request ID from context.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// writeAuthError writes a middleware-level error response.
func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)

	status := http.StatusUnauthorized
	if strings.Contains(code, "-403") {
		status = http.StatusForbidden
	} else if strings.HasSuffix(code, "-4290") {
		status = http.StatusTooManyRequests
	} else if strings.HasSuffix(code, "-4040") {
		status = http.StatusNotFound
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// SplitHostPort handles IPv6 addresses like [::1]:8080.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
