package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/core/service"
)

type stubKeyRepo struct {
	keys map[string]*domain.APIKey
}

func newStubKeyRepo() *stubKeyRepo {
	return &stubKeyRepo{keys: make(map[string]*domain.APIKey)}
}

func (s *stubKeyRepo) Get(ctx context.Context, keyID string) (*domain.APIKey, error) {
	key, ok := s.keys[keyID]
	if !ok {
		return nil, domain.ErrAPIKeyNotFound
	}
	return key.Clone(), nil
}

func (s *stubKeyRepo) Create(ctx context.Context, key *domain.APIKey) error {
	s.keys[key.KeyID] = key.Clone()
	return nil
}

func (s *stubKeyRepo) Update(ctx context.Context, key *domain.APIKey) error {
	s.keys[key.KeyID] = key.Clone()
	return nil
}

func (s *stubKeyRepo) Delete(ctx context.Context, keyID string) error {
	delete(s.keys, keyID)
	return nil
}

func (s *stubKeyRepo) List(ctx context.Context) ([]*domain.APIKey, error) {
	out := make([]*domain.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, key.Clone())
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mintKey creates a key through the auth service and returns the
// service, key ID, and plaintext secret.
func mintKey(t *testing.T, role domain.Role, rateLimit int) (*service.AuthService, string, string) {
	t.Helper()

	authSvc := service.NewAuthService(newStubKeyRepo())
	key, secret, err := authSvc.CreateAPIKey(context.Background(), "test", role, rateLimit)
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return authSvc, key.KeyID, secret
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), tag("first"), tag("second"), tag("third"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"first", "second", "third"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("no request ID in context")
	}
	if !strings.HasPrefix(seen, "req-") {
		t.Errorf("request ID %q lacks req- prefix", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-client-chosen")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "req-client-chosen" {
		t.Errorf("request ID = %q, want client-supplied", seen)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("X-Error-Code"); got != "PT-SYS-5000" {
		t.Errorf("X-Error-Code = %q, want PT-SYS-5000", got)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["code"] != "PT-SYS-5000" {
		t.Errorf("body code = %q, want PT-SYS-5000", body["code"])
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(1, 2)(okHandler())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2 passes, third is rejected.
	if got := send("10.0.0.1"); got != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", got)
	}
	if got := send("10.0.0.1"); got != http.StatusOK {
		t.Fatalf("second request status = %d, want 200", got)
	}
	if got := send("10.0.0.1"); got != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", got)
	}

	// A different client IP has its own bucket.
	if got := send("10.0.0.2"); got != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", got)
	}
}

func TestRateLimit_RetryAfter(t *testing.T) {
	h := RateLimit(1, 1)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestAuth_MissingCredentials(t *testing.T) {
	authSvc, _, _ := mintKey(t, domain.RoleObserver, 0)
	cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}

	rec := httptest.NewRecorder()
	Auth(cfg, domain.RoleObserver)(okHandler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("X-Error-Code"); got != "PT-AUTH-4010" {
		t.Errorf("X-Error-Code = %q, want PT-AUTH-4010", got)
	}
}

func TestAuth_InvalidSecret(t *testing.T) {
	authSvc, keyID, _ := mintKey(t, domain.RoleObserver, 0)
	cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key-ID", keyID)
	req.Header.Set("X-API-Key", "ptas_wrong")

	rec := httptest.NewRecorder()
	Auth(cfg, domain.RoleObserver)(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("X-Error-Code"); got != "PT-AUTH-4011" {
		t.Errorf("X-Error-Code = %q, want PT-AUTH-4011", got)
	}
}

func TestAuth_ValidKey(t *testing.T) {
	authSvc, keyID, secret := mintKey(t, domain.RoleObserver, 0)
	cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}

	var ctxKey *domain.APIKey
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxKey = GetAPIKeyFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key-ID", keyID)
	req.Header.Set("X-API-Key", secret)

	rec := httptest.NewRecorder()
	Auth(cfg, domain.RoleObserver)(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if ctxKey == nil || ctxKey.KeyID != keyID {
		t.Errorf("context key = %+v, want %s", ctxKey, keyID)
	}
}

func TestAuth_BearerFormat(t *testing.T) {
	authSvc, keyID, secret := mintKey(t, domain.RoleObserver, 0)
	cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+keyID+":"+secret)

	rec := httptest.NewRecorder()
	Auth(cfg, domain.RoleObserver)(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestAuth_RoleEnforcement(t *testing.T) {
	authSvc, keyID, secret := mintKey(t, domain.RoleObserver, 0)
	cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key-ID", keyID)
	req.Header.Set("X-API-Key", secret)

	rec := httptest.NewRecorder()
	Auth(cfg, domain.RoleAdmin)(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if got := rec.Header().Get("X-Error-Code"); got != "PT-AUTH-4030" {
		t.Errorf("X-Error-Code = %q, want PT-AUTH-4030", got)
	}
}

func TestAuth_AdminSubsumesObserver(t *testing.T) {
	authSvc, keyID, secret := mintKey(t, domain.RoleAdmin, 0)
	cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key-ID", keyID)
	req.Header.Set("X-API-Key", secret)

	rec := httptest.NewRecorder()
	Auth(cfg, domain.RoleObserver)(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuth_Disabled(t *testing.T) {
	cfg := &MiddlewareConfig{Logger: discardLogger(), AuthEnabled: false}

	rec := httptest.NewRecorder()
	Auth(cfg, domain.RoleAdmin)(okHandler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}

func TestAuth_PerKeyRateLimit(t *testing.T) {
	authSvc, keyID, secret := mintKey(t, domain.RoleObserver, 2)
	cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}
	h := Auth(cfg, domain.RoleObserver)(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key-ID", keyID)
		req.Header.Set("X-API-Key", secret)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if got := send().Code; got != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", got)
	}
	if got := send().Code; got != http.StatusOK {
		t.Fatalf("second request status = %d, want 200", got)
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestMetricsAuth(t *testing.T) {
	authSvc, keyID, secret := mintKey(t, domain.RoleObserver, 0)

	t.Run("not required", func(t *testing.T) {
		cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}
		rec := httptest.NewRecorder()
		MetricsAuth(cfg, false)(okHandler()).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("required without credentials", func(t *testing.T) {
		cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}
		rec := httptest.NewRecorder()
		MetricsAuth(cfg, true)(okHandler()).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("required with valid key", func(t *testing.T) {
		cfg := &MiddlewareConfig{AuthService: authSvc, Logger: discardLogger(), AuthEnabled: true}
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("X-API-Key-ID", keyID)
		req.Header.Set("X-API-Key", secret)
		rec := httptest.NewRecorder()
		MetricsAuth(cfg, true)(okHandler()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestGetClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.168.1.5:1234",
			want:       "192.168.1.5",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[::1]:8080",
			want:       "::1",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.3"},
			want:       "198.51.100.3",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tc.want {
				t.Errorf("getClientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}
