// Package registry maintains the live task hierarchy.
package registry

import "github.com/vatlidak/proctree-go/internal/core/domain"

// Task is one node of the hierarchy. Fields are owned by the registry;
// the accessor methods are O(1), never block, and never mutate, but are
// only safe while the registry's shared lock is held (inside View).
type Task struct {
	id    domain.TaskID
	label string
	owner uint32
	state domain.TaskState

	parent      *Task
	eldestChild *Task
	nextSibling *Task
}

// ID returns the task's registry identifier.
func (t *Task) ID() domain.TaskID { return t.id }

// Label returns the fixed-width display name.
func (t *Task) Label() string { return t.label }

// Owner returns the numeric identity of the owning principal.
func (t *Task) Owner() uint32 { return t.owner }

// State returns the coarse run-state.
func (t *Task) State() domain.TaskState { return t.state }

// Parent returns the structural parent, or nil for the root sentinel.
func (t *Task) Parent() *Task { return t.parent }

// EldestChild returns the child visited first in walk order (the most
// recently created child), or nil if childless.
func (t *Task) EldestChild() *Task { return t.eldestChild }

// NextSibling returns the next sibling in walk order, or nil if last.
func (t *Task) NextSibling() *Task { return t.nextSibling }

// Record captures the task as a by-value domain.TaskRecord.
func (t *Task) Record() domain.TaskRecord {
	rec := domain.TaskRecord{
		ID:      t.id,
		State:   t.state,
		OwnerID: t.owner,
		Label:   t.label,
	}
	if t.parent != nil {
		rec.ParentID = t.parent.id
	}
	if t.eldestChild != nil {
		rec.EldestChildID = t.eldestChild.id
	}
	if t.nextSibling != nil {
		rec.NextSiblingID = t.nextSibling.id
	}
	return rec
}
