// Package service provides the domain services for proctree.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/registry"
)

// Snapshot sizing policy defaults.
const (
	// DefaultSlack is the number of spare record slots added to the
	// live-count probe, absorbing tasks spawned between the probe and
	// the walk. It reduces, but cannot eliminate, truncation under
	// concurrent growth.
	DefaultSlack = 15

	// DefaultMaxAlloc caps the record buffer regardless of what the
	// caller asks for.
	DefaultMaxAlloc = 1 << 20
)

// SnapshotService captures point-in-time snapshots of the hierarchy.
//
// One call takes the registry's shared lock twice: once for a cheap
// live-count probe that sizes the buffer, and once for the whole
// traversal. The service never takes the exclusive lock and never
// mutates the tree.
type SnapshotService struct {
	reg      *registry.Registry
	slack    int
	maxAlloc int
}

// SnapshotOption configures a SnapshotService.
type SnapshotOption func(*SnapshotService)

// WithSlack overrides the sizing slack.
func WithSlack(n int) SnapshotOption {
	return func(s *SnapshotService) {
		if n >= 0 {
			s.slack = n
		}
	}
}

// WithMaxAlloc overrides the record buffer cap.
func WithMaxAlloc(n int) SnapshotOption {
	return func(s *SnapshotService) {
		if n > 0 {
			s.maxAlloc = n
		}
	}
}

// NewSnapshotService creates a SnapshotService over the given registry.
func NewSnapshotService(reg *registry.Registry, opts ...SnapshotOption) *SnapshotService {
	s := &SnapshotService{
		reg:      reg,
		slack:    DefaultSlack,
		maxAlloc: DefaultMaxAlloc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot walks the hierarchy and returns up to capacity records in
// DFS pre-order, plus the authoritative count of every task visited.
//
// The records are always a prefix of the full enumeration: when the
// tree holds more tasks than the buffer, the walk still visits and
// counts all of them, and Truncated() on the result reports the
// shortfall. Truncation is an outcome, not an error.
func (s *SnapshotService) Snapshot(ctx context.Context, capacity int) (*domain.Snapshot, error) {
	if capacity < 1 {
		return nil, domain.ErrInvalidCapacity.WithDetails(fmt.Sprintf("got %d", capacity))
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	// Size the buffer from the current live count plus slack. The
	// probe and the walk are separate lock acquisitions, so the tree
	// may change in between; the walk's own count supersedes this
	// estimate.
	alloc := s.reg.Count() + s.slack
	if capacity < alloc {
		alloc = capacity
	}
	if alloc > s.maxAlloc {
		return nil, domain.ErrCapacityTooLarge.WithDetails(
			fmt.Sprintf("need %d slots, limit %d", alloc, s.maxAlloc))
	}

	id, err := domain.GenerateSnapshotID()
	if err != nil {
		return nil, err
	}

	takenAt := time.Now().UTC()
	records := make([]domain.TaskRecord, 0, alloc)
	total := 0
	s.reg.View(func(v registry.View) {
		total = walk(v.Root(), alloc, func(rec domain.TaskRecord) {
			records = append(records, rec)
		})
	})

	return &domain.Snapshot{
		ID:           id,
		TakenAt:      takenAt,
		Records:      records,
		TotalVisited: total,
	}, nil
}
