// Package domain defines the core domain models for proctree.
package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Task constraints.
const (
	// MaxLabelLength is the fixed display-name width, matching the
	// 16-byte comm field of the kernel structures this mirrors.
	MaxLabelLength = 16
)

// TaskID is the unique, stable identifier of a registry task.
// IDs are assigned monotonically by the registry and never reused
// while a task is alive.
type TaskID uint64

// NoTask is the zero TaskID, representing the absence of a structural
// neighbor (no parent, no child, no next sibling).
const NoTask TaskID = 0

// RootTaskID is the ID of the root sentinel, the universal ancestor.
// It is created with the registry, is always alive, and never exits.
const RootTaskID TaskID = 1

// IsNone reports whether the ID denotes absence.
func (id TaskID) IsNone() bool { return id == NoTask }

// String returns the decimal form of the ID.
func (id TaskID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseTaskID parses a decimal task ID.
func ParseTaskID(s string) (TaskID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NoTask, ErrInvalidArgument.WithDetails("malformed task id " + s)
	}
	return TaskID(n), nil
}

// TaskState is the coarse run-state of a task.
type TaskState string

// Task run-states. The set follows the classic scheduler states; states
// observed from /proc that have no counterpart here map to StateUnknown.
const (
	StateRunnable        TaskState = "runnable"
	StateSleeping        TaskState = "sleeping"
	StateUninterruptible TaskState = "uninterruptible"
	StateStopped         TaskState = "stopped"
	StateZombie          TaskState = "zombie"
	StateUnknown         TaskState = "unknown"
)

// ParseTaskState parses a textual state name. Unrecognized input
// yields StateUnknown and false.
func ParseTaskState(s string) (TaskState, bool) {
	switch TaskState(strings.ToLower(strings.TrimSpace(s))) {
	case StateRunnable:
		return StateRunnable, true
	case StateSleeping:
		return StateSleeping, true
	case StateUninterruptible:
		return StateUninterruptible, true
	case StateStopped:
		return StateStopped, true
	case StateZombie:
		return StateZombie, true
	default:
		return StateUnknown, false
	}
}

// StateFromStatChar maps a /proc/<pid>/stat state letter to a TaskState.
func StateFromStatChar(c byte) TaskState {
	switch c {
	case 'R':
		return StateRunnable
	case 'S', 'I':
		return StateSleeping
	case 'D':
		return StateUninterruptible
	case 'T', 't':
		return StateStopped
	case 'Z', 'X':
		return StateZombie
	default:
		return StateUnknown
	}
}

// Valid reports whether the state is one of the known run-states.
func (s TaskState) Valid() bool {
	switch s {
	case StateRunnable, StateSleeping, StateUninterruptible, StateStopped, StateZombie:
		return true
	}
	return false
}

// TruncateLabel clamps a display name to MaxLabelLength bytes,
// backing up so the cut never splits a multi-byte rune.
func TruncateLabel(label string) string {
	if len(label) <= MaxLabelLength {
		return label
	}
	cut := MaxLabelLength
	for cut > 0 && !utf8.RuneStart(label[cut]) {
		cut--
	}
	return label[:cut]
}
