package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vatlidak/proctree-go/internal/core/domain"
)

const snapshotKeyPrefix = "snap/"

// ArchiveEntry is the listing view of an archived snapshot, without
// the record payload.
type ArchiveEntry struct {
	ID           string    `json:"id"`
	TakenAt      time.Time `json:"taken_at"`
	RecordCount  int       `json:"record_count"`
	TotalVisited int       `json:"total_visited"`
}

// Archive persists snapshots in the store under snap/{id}. Entries
// beyond the retention limit are pruned oldest-first on save.
type Archive struct {
	store     *Store
	retention int
}

// DefaultArchiveRetention is how many snapshots the archive keeps when
// no explicit retention is configured.
const DefaultArchiveRetention = 1000

// NewArchive creates an Archive over the store. retention <= 0 selects
// the default.
func NewArchive(store *Store, retention int) *Archive {
	if retention <= 0 {
		retention = DefaultArchiveRetention
	}
	return &Archive{store: store, retention: retention}
}

func snapshotKey(id string) []byte {
	return []byte(snapshotKeyPrefix + id)
}

// Save archives a snapshot and enforces retention.
func (a *Archive) Save(ctx context.Context, snap *domain.Snapshot) error {
	if !domain.ValidateSnapshotID(snap.ID) {
		return domain.ErrInvalidArgument.WithDetails("malformed snapshot id " + snap.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("archive: encode snapshot: %w", err)
	}
	if err := a.store.set(snapshotKey(snap.ID), payload); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}

	if _, err := a.pruneToRetention(ctx); err != nil {
		return err
	}
	return nil
}

// Get retrieves an archived snapshot by ID.
func (a *Archive) Get(ctx context.Context, id string) (*domain.Snapshot, error) {
	if !domain.ValidateSnapshotID(id) {
		return nil, domain.ErrInvalidArgument.WithDetails("malformed snapshot id " + id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := a.store.get(snapshotKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, domain.ErrSnapshotNotFound.WithDetails(id)
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("archive: decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (a *Archive) List(ctx context.Context, limit int) ([]ArchiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make([]ArchiveEntry, 0)
	var decodeErr error
	err := a.store.scan([]byte(snapshotKeyPrefix), true, func(key, value []byte) bool {
		var snap domain.Snapshot
		if err := json.Unmarshal(value, &snap); err != nil {
			decodeErr = fmt.Errorf("archive: decode %s: %w", key, err)
			return false
		}
		entries = append(entries, ArchiveEntry{
			ID:           snap.ID,
			TakenAt:      snap.TakenAt,
			RecordCount:  len(snap.Records),
			TotalVisited: snap.TotalVisited,
		})
		return limit <= 0 || len(entries) < limit
	})
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

// Delete removes an archived snapshot.
func (a *Archive) Delete(ctx context.Context, id string) error {
	if !domain.ValidateSnapshotID(id) {
		return domain.ErrInvalidArgument.WithDetails("malformed snapshot id " + id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.store.delete(snapshotKey(id)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.ErrSnapshotNotFound.WithDetails(id)
		}
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Prune removes the oldest entries until at most keep remain. It
// returns the number of snapshots removed.
func (a *Archive) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var ids []string
	err := a.store.scan([]byte(snapshotKeyPrefix), false, func(key, _ []byte) bool {
		ids = append(ids, string(key[len(snapshotKeyPrefix):]))
		return true
	})
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	if len(ids) <= keep {
		return 0, nil
	}

	// Oldest first in scan order; drop from the front.
	removed := 0
	for _, id := range ids[:len(ids)-keep] {
		if err := a.store.delete(snapshotKey(id)); err != nil && !errors.Is(err, ErrNotFound) {
			return removed, domain.ErrStorageError.WithCause(err)
		}
		removed++
	}
	return removed, nil
}

// Count returns the number of archived snapshots.
func (a *Archive) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := 0
	err := a.store.scan([]byte(snapshotKeyPrefix), false, func(_, _ []byte) bool {
		n++
		return true
	})
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return n, nil
}

func (a *Archive) pruneToRetention(ctx context.Context) (int, error) {
	return a.Prune(ctx, a.retention)
}
