package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vatlidak/proctree-go/internal/core/domain"
)

const apiKeyPrefix = "key/"

// KeyStore persists API keys in the store under key/{id}. It
// implements the auth service's repository interface.
type KeyStore struct {
	store *Store
}

// NewKeyStore creates a KeyStore over the store.
func NewKeyStore(store *Store) *KeyStore {
	return &KeyStore{store: store}
}

func apiKeyKey(keyID string) []byte {
	return []byte(apiKeyPrefix + keyID)
}

// Get retrieves an API key by ID.
func (ks *KeyStore) Get(ctx context.Context, keyID string) (*domain.APIKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := ks.store.get(apiKeyKey(keyID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, domain.ErrAPIKeyNotFound.WithDetails(keyID)
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}

	var key domain.APIKey
	if err := json.Unmarshal(payload, &key); err != nil {
		return nil, fmt.Errorf("keystore: decode %s: %w", keyID, err)
	}
	return &key, nil
}

// Create persists a new API key; the ID must be unused.
func (ks *KeyStore) Create(ctx context.Context, key *domain.APIKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := ks.store.get(apiKeyKey(key.KeyID)); err == nil {
		return domain.ErrAPIKeyConflict.WithDetails(key.KeyID)
	} else if !errors.Is(err, ErrNotFound) {
		return domain.ErrStorageError.WithCause(err)
	}

	return ks.put(key)
}

// Update overwrites an existing API key.
func (ks *KeyStore) Update(ctx context.Context, key *domain.APIKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := ks.store.get(apiKeyKey(key.KeyID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.ErrAPIKeyNotFound.WithDetails(key.KeyID)
		}
		return domain.ErrStorageError.WithCause(err)
	}

	return ks.put(key)
}

// Delete removes an API key by ID.
func (ks *KeyStore) Delete(ctx context.Context, keyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := ks.store.delete(apiKeyKey(keyID)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.ErrAPIKeyNotFound.WithDetails(keyID)
		}
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// List retrieves all API keys in ID order.
func (ks *KeyStore) List(ctx context.Context) ([]*domain.APIKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]*domain.APIKey, 0)
	var decodeErr error
	err := ks.store.scan([]byte(apiKeyPrefix), false, func(k, value []byte) bool {
		var key domain.APIKey
		if err := json.Unmarshal(value, &key); err != nil {
			decodeErr = fmt.Errorf("keystore: decode %s: %w", k, err)
			return false
		}
		keys = append(keys, &key)
		return true
	})
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return keys, nil
}

func (ks *KeyStore) put(key *domain.APIKey) error {
	payload, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("keystore: encode %s: %w", key.KeyID, err)
	}
	if err := ks.store.set(apiKeyKey(key.KeyID), payload); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}
