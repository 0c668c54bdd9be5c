// Package service provides the domain services for proctree.
package service

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/time/rate"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/pkg/cmap"
)

// APIKeyRepository defines the storage interface for API key operations.
type APIKeyRepository interface {
	// Get retrieves an API key by ID.
	Get(ctx context.Context, keyID string) (*domain.APIKey, error)

	// Create persists a new API key.
	Create(ctx context.Context, key *domain.APIKey) error

	// Update updates an existing API key.
	Update(ctx context.Context, key *domain.APIKey) error

	// Delete removes an API key by ID.
	Delete(ctx context.Context, keyID string) error

	// List retrieves all API keys.
	List(ctx context.Context) ([]*domain.APIKey, error)
}

// AuthService authenticates API keys, answers permission checks, and
// enforces per-key rate limits.
//
// Validated keys are cached with a TTL so that the Argon2 verification
// cost is paid once per key per cache window, not once per request.
type AuthService struct {
	repo     APIKeyRepository
	cache    *cmap.Map[string, cachedKey]
	limiters *cmap.Map[string, *rate.Limiter]
	cacheTTL time.Duration
}

type cachedKey struct {
	key       *domain.APIKey
	expiresAt time.Time
}

// DefaultKeyCacheTTL bounds how long a validated key is served from
// cache before the repository is consulted again.
const DefaultKeyCacheTTL = 60 * time.Second

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithKeyCacheTTL overrides the validated-key cache TTL.
func WithKeyCacheTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewAuthService creates an AuthService over the given key repository.
func NewAuthService(repo APIKeyRepository, opts ...AuthOption) *AuthService {
	s := &AuthService{
		repo:     repo,
		cache:    cmap.New[string, cachedKey](),
		limiters: cmap.New[string, *rate.Limiter](),
		cacheTTL: DefaultKeyCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateAPIKey checks a key ID and plaintext secret against the
// repository and returns the key on success. The secret comparison is
// constant-time over the Argon2 digests.
func (s *AuthService) ValidateAPIKey(ctx context.Context, keyID, secret string) (*domain.APIKey, error) {
	if keyID == "" || secret == "" {
		return nil, domain.ErrAPIKeyMissing
	}
	if !domain.IsValidAPIKeyID(keyID) {
		return nil, domain.ErrAPIKeyInvalid.WithDetails("malformed key id")
	}

	if entry, ok := s.cache.Get(keyID); ok && time.Now().Before(entry.expiresAt) {
		if verifyArgon2Hash(secret, entry.key.SecretHash) {
			if !entry.key.Enabled {
				return nil, domain.ErrAPIKeyDisabled
			}
			entry.key.Touch()
			return entry.key, nil
		}
		// Secret mismatch against the cached hash: fall through to the
		// repository in case the key was rotated since caching.
	}

	key, err := s.repo.Get(ctx, keyID)
	if err != nil {
		return nil, domain.ErrAPIKeyNotFound.WithCause(err)
	}
	if !key.Enabled {
		return nil, domain.ErrAPIKeyDisabled
	}
	if !verifyArgon2Hash(secret, key.SecretHash) {
		return nil, domain.ErrAPIKeyInvalid.WithDetails("secret mismatch")
	}

	key.Touch()
	if err := s.repo.Update(ctx, key); err == nil {
		s.cache.Set(keyID, cachedKey{key: key, expiresAt: time.Now().Add(s.cacheTTL)})
	}

	return key, nil
}

// CheckPermission verifies the key's role covers the required role.
func (s *AuthService) CheckPermission(key *domain.APIKey, required domain.Role) error {
	if !key.Role.Allows(required) {
		return domain.ErrPermissionDenied.WithDetails(
			"role " + string(key.Role) + " cannot act as " + string(required))
	}
	return nil
}

// CheckRateLimit applies the key's request budget. The limiter for a
// key is created lazily on first use and shared across requests.
func (s *AuthService) CheckRateLimit(keyID string, limit int) error {
	if limit < 1 {
		limit = domain.DefaultKeyRateLimit
	}
	limiter, _ := s.limiters.GetOrSet(keyID, rate.NewLimiter(rate.Limit(limit), limit))
	if !limiter.Allow() {
		return domain.ErrRateLimited.WithDetails(
			fmt.Sprintf("key budget %d req/s exhausted", limit))
	}
	return nil
}

// InvalidateKey drops a key from the validation cache and releases its
// rate limiter. Called after any mutation of the key.
func (s *AuthService) InvalidateKey(keyID string) {
	s.cache.Delete(keyID)
	s.limiters.Delete(keyID)
}

// CreateAPIKey mints a new key and persists it. The plaintext secret
// is returned exactly once and never stored.
func (s *AuthService) CreateAPIKey(ctx context.Context, name string, role domain.Role, rateLimit int) (*domain.APIKey, string, error) {
	if name == "" {
		return nil, "", domain.ErrMissingArgument.WithDetails("key name is required")
	}
	if !domain.IsValidRole(string(role)) {
		return nil, "", domain.ErrInvalidArgument.WithDetails("unknown role " + string(role))
	}

	key, plainSecret, err := domain.NewAPIKey(name, role)
	if err != nil {
		return nil, "", err
	}
	if rateLimit > 0 {
		key.RateLimit = rateLimit
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return nil, "", domain.ErrStorageError.WithCause(err)
	}
	return key, plainSecret, nil
}

// ListAPIKeys retrieves every key. Secret hashes stay internal; the
// HTTP layer decides what it exposes.
func (s *AuthService) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return keys, nil
}

// SetKeyEnabled enables or disables a key.
func (s *AuthService) SetKeyEnabled(ctx context.Context, keyID string, enabled bool) error {
	key, err := s.repo.Get(ctx, keyID)
	if err != nil {
		return domain.ErrAPIKeyNotFound.WithCause(err)
	}
	key.Enabled = enabled
	if err := s.repo.Update(ctx, key); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	s.InvalidateKey(keyID)
	return nil
}

// DeleteAPIKey removes a key permanently.
func (s *AuthService) DeleteAPIKey(ctx context.Context, keyID string) error {
	if err := s.repo.Delete(ctx, keyID); err != nil {
		return domain.ErrAPIKeyNotFound.WithCause(err)
	}
	s.InvalidateKey(keyID)
	return nil
}

// verifyArgon2Hash checks a plaintext secret against an encoded
// Argon2id hash of the form $argon2id$v=19$m=...,t=...,p=...$salt$hash.
func verifyArgon2Hash(secret, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(secret), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
