// Package domain defines the core domain models for proctree.
package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SnapshotIDPrefix is the prefix for snapshot IDs.
// Format: ptsn-{ulid_lowercase}, 31 characters total.
const SnapshotIDPrefix = "ptsn-"

// TaskRecord is an immutable, by-value copy of one task's identity,
// status, and structural pointers at the instant it was visited.
// It carries no reference back into the registry.
type TaskRecord struct {
	// ID is the task's registry identifier.
	ID TaskID `json:"id"`

	// ParentID is the structural parent, or NoTask for the root sentinel.
	ParentID TaskID `json:"parent_id"`

	// EldestChildID is the child visited first in walk order
	// (the most recently created child), or NoTask if childless.
	EldestChildID TaskID `json:"eldest_child_id"`

	// NextSiblingID is the next sibling in walk order, or NoTask
	// if last among siblings.
	NextSiblingID TaskID `json:"next_sibling_id"`

	// State is the coarse run-state at capture time.
	State TaskState `json:"state"`

	// OwnerID is the numeric identity of the owning principal.
	OwnerID uint32 `json:"owner_id"`

	// Label is the short, fixed-width display name.
	Label string `json:"label"`
}

// Snapshot is one completed walk over the hierarchy: the records
// captured in DFS pre-order plus the authoritative count of every
// node visited, which exceeds len(Records) when the walk was
// truncated by capacity.
type Snapshot struct {
	// ID is the unique snapshot identifier (ptsn-{ulid}).
	ID string `json:"id"`

	// TakenAt is the wall-clock time the walk started.
	TakenAt time.Time `json:"taken_at"`

	// Records holds the captured records, a prefix of the full
	// DFS pre-order enumeration.
	Records []TaskRecord `json:"records"`

	// TotalVisited counts every node in the tree at walk time.
	TotalVisited int `json:"total_visited"`
}

// Truncated reports whether capacity forced the walk to record fewer
// nodes than it visited. Truncation is not an error; callers decide
// whether to retry with a larger capacity.
func (s *Snapshot) Truncated() bool {
	return s.TotalVisited > len(s.Records)
}

// GenerateSnapshotID generates a new snapshot ID using ULID.
// Format: ptsn-{ulid_lowercase}, 31 characters total.
func GenerateSnapshotID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return SnapshotIDPrefix + strings.ToLower(id.String()), nil
}

// ValidateSnapshotID checks the ptsn-{ulid} format.
func ValidateSnapshotID(id string) bool {
	if !strings.HasPrefix(id, SnapshotIDPrefix) {
		return false
	}
	body := strings.ToUpper(id[len(SnapshotIDPrefix):])
	_, err := ulid.Parse(body)
	return err == nil
}
