// Package domain defines the core domain models for proctree.
package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/argon2"
)

// API Key constants.
const (
	// APIKeyIDPrefix is the prefix for API Key IDs (public, uses hyphen).
	APIKeyIDPrefix = "ptak-"

	// APIKeySecretPrefix is the prefix for API Key secrets (sensitive, uses underscore).
	APIKeySecretPrefix = "ptas_"

	// SecretLength is the number of random bytes in a generated secret.
	SecretLength = 32
)

// Argon2id parameters for API Key secret hashing.
const (
	Argon2Memory      uint32 = 16384 // KB
	Argon2Time        uint32 = 2
	Argon2Parallelism uint8  = 2
	Argon2KeyLen      uint32 = 32
	Argon2SaltLen            = 16
)

// Role defines the permission level of an API key.
type Role string

const (
	// RoleObserver has read-only access: snapshots, task lookups,
	// archive reads, and system status.
	RoleObserver Role = "observer"

	// RoleAdmin additionally mutates the registry, prunes the archive,
	// and manages API keys.
	RoleAdmin Role = "admin"
)

// IsValidRole checks if a string is a valid role.
func IsValidRole(r string) bool {
	switch Role(r) {
	case RoleObserver, RoleAdmin:
		return true
	}
	return false
}

// Allows reports whether a key with this role may act with the
// required role. Admin subsumes observer.
func (r Role) Allows(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// APIKey represents an API key credential for the HTTP surface.
// The plaintext secret is never stored; only its Argon2id hash.
type APIKey struct {
	// KeyID is the public key identifier (ptak-{ulid}).
	KeyID string `json:"key_id"`

	// Name is a human-readable key name.
	Name string `json:"name"`

	// SecretHash is the Argon2id hash of the secret.
	SecretHash string `json:"secret_hash"`

	// Role is the permission level.
	Role Role `json:"role"`

	// Enabled indicates whether the key may authenticate.
	Enabled bool `json:"enabled"`

	// RateLimit is the per-key request budget (requests/second).
	RateLimit int `json:"rate_limit"`

	// CreatedAt is the creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// LastUsed is the last successful authentication (Unix milliseconds).
	LastUsed int64 `json:"last_used,omitempty"`
}

// DefaultKeyRateLimit is the per-key request budget applied when a key
// is created without an explicit limit.
const DefaultKeyRateLimit = 100

// NewAPIKey creates a new APIKey with a generated ID and secret.
// Returns the key and the plaintext secret, which is only returned once.
func NewAPIKey(name string, role Role) (*APIKey, string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(timeNow()), entropy)
	if err != nil {
		return nil, "", ErrInternalServer.WithCause(err)
	}
	keyID := APIKeyIDPrefix + strings.ToLower(id.String())

	secretBytes := make([]byte, SecretLength)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, "", ErrInternalServer.WithCause(err)
	}
	plainSecret := APIKeySecretPrefix + base64.RawURLEncoding.EncodeToString(secretBytes)

	secretHash, err := HashSecret(plainSecret)
	if err != nil {
		return nil, "", ErrInternalServer.WithCause(err)
	}

	return &APIKey{
		KeyID:      keyID,
		Name:       name,
		SecretHash: secretHash,
		Role:       role,
		Enabled:    true,
		RateLimit:  DefaultKeyRateLimit,
		CreatedAt:  currentTimeMillis(),
	}, plainSecret, nil
}

// HashSecret computes an Argon2id hash of the secret.
// Returns the hash in the format: $argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>
func HashSecret(secret string) (string, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, Argon2Time, Argon2Memory, Argon2Parallelism, Argon2KeyLen)

	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(hash)

	return "$argon2id$v=19$m=16384,t=2,p=2$" + saltB64 + "$" + hashB64, nil
}

// IsValidAPIKeyID checks the ptak-{ulid} format.
func IsValidAPIKeyID(id string) bool {
	if !strings.HasPrefix(id, APIKeyIDPrefix) {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(APIKeyIDPrefix):]))
	return err == nil
}

// Touch updates the LastUsed timestamp.
func (k *APIKey) Touch() {
	k.LastUsed = currentTimeMillis()
}

// CreatedAtTime returns CreatedAt as time.Time.
func (k *APIKey) CreatedAtTime() time.Time {
	return time.UnixMilli(k.CreatedAt)
}

// Validate validates the API key fields.
func (k *APIKey) Validate() error {
	var violations []string

	if k.KeyID == "" {
		violations = append(violations, "key_id is required")
	} else if !IsValidAPIKeyID(k.KeyID) {
		violations = append(violations, "key_id format invalid")
	}
	if k.SecretHash == "" {
		violations = append(violations, "secret_hash is required")
	}
	if !IsValidRole(string(k.Role)) {
		violations = append(violations, "invalid role")
	}
	if k.RateLimit < 1 {
		violations = append(violations, "rate_limit must be at least 1")
	}

	if len(violations) > 0 {
		return ErrTaskValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Clone creates a copy of the API key.
func (k *APIKey) Clone() *APIKey {
	clone := *k
	return &clone
}

// MaskSecret masks a plaintext secret for safe logging.
func MaskSecret(secret string) string {
	if !strings.HasPrefix(secret, APIKeySecretPrefix) || len(secret) < 12 {
		return "***REDACTED***"
	}
	body := secret[len(APIKeySecretPrefix):]
	return APIKeySecretPrefix + body[:3] + "..." + body[len(body)-3:]
}

// currentTimeMillis returns the current Unix timestamp in milliseconds.
var currentTimeMillis = func() int64 {
	return timeNow().UnixMilli()
}

// timeNow is a hook for testing.
var timeNow = time.Now
