// Package registry maintains the live task hierarchy.
package registry

import (
	"sync"

	"github.com/vatlidak/proctree-go/internal/core/domain"
)

// RootLabel is the display name of the root sentinel.
const RootLabel = "root"

// Registry is the live, mutable task hierarchy.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[domain.TaskID]*Task
	root   *Task
	nextID domain.TaskID
}

// New creates a registry containing only the root sentinel.
func New() *Registry {
	root := &Task{
		id:    domain.RootTaskID,
		label: RootLabel,
		state: domain.StateRunnable,
	}
	return &Registry{
		tasks:  map[domain.TaskID]*Task{root.id: root},
		root:   root,
		nextID: domain.RootTaskID + 1,
	}
}

// Spawn creates a new task under the given parent and returns its ID.
// The new task becomes the parent's eldest child: it is prepended to
// the sibling chain, so the child visited first in walk order is
// always the most recently created one.
func (r *Registry) Spawn(parentID domain.TaskID, label string, owner uint32, state domain.TaskState) (domain.TaskID, error) {
	if label == "" {
		return domain.NoTask, domain.ErrMissingArgument.WithDetails("label is required")
	}
	if state == "" {
		state = domain.StateRunnable
	}
	if !state.Valid() {
		return domain.NoTask, domain.ErrInvalidArgument.WithDetails("unknown state " + string(state))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	parent, ok := r.tasks[parentID]
	if !ok {
		return domain.NoTask, domain.ErrTaskNotFound.WithDetails("parent " + parentID.String())
	}

	t := &Task{
		id:    r.nextID,
		label: domain.TruncateLabel(label),
		owner: owner,
		state: state,
	}
	r.nextID++

	t.parent = parent
	t.nextSibling = parent.eldestChild
	parent.eldestChild = t
	r.tasks[t.id] = t

	return t.id, nil
}

// Exit removes a task from the hierarchy. Its children, if any, are
// reparented to the root sentinel and keep their relative order at
// the head of the root's sibling chain. The root sentinel itself
// cannot exit.
func (r *Registry) Exit(id domain.TaskID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound.WithDetails(id.String())
	}
	if t == r.root {
		return domain.ErrRootImmortal
	}

	r.unlink(t)

	// Splice the orphaned chain onto the root's children.
	if first := t.eldestChild; first != nil {
		last := first
		first.parent = r.root
		for last.nextSibling != nil {
			last = last.nextSibling
			last.parent = r.root
		}
		last.nextSibling = r.root.eldestChild
		r.root.eldestChild = first
	}

	t.parent, t.eldestChild, t.nextSibling = nil, nil, nil
	delete(r.tasks, id)
	return nil
}

// unlink removes t from its parent's sibling chain.
// Caller must hold the exclusive lock.
func (r *Registry) unlink(t *Task) {
	parent := t.parent
	if parent.eldestChild == t {
		parent.eldestChild = t.nextSibling
		return
	}
	for prev := parent.eldestChild; prev != nil; prev = prev.nextSibling {
		if prev.nextSibling == t {
			prev.nextSibling = t.nextSibling
			return
		}
	}
}

// SetState updates a task's run-state.
func (r *Registry) SetState(id domain.TaskID, state domain.TaskState) error {
	if !state.Valid() {
		return domain.ErrInvalidArgument.WithDetails("unknown state " + string(state))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound.WithDetails(id.String())
	}
	t.state = state
	return nil
}

// Count returns the number of live tasks, root sentinel included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Lookup captures a single task as a by-value record.
func (r *Registry) Lookup(id domain.TaskID) (domain.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return domain.TaskRecord{}, domain.ErrTaskNotFound.WithDetails(id.String())
	}
	return t.Record(), nil
}

// View runs fn with the shared lock held for its whole duration.
// fn must not call back into any mutating registry method, and must
// not retain task pointers past its return.
func (r *Registry) View(fn func(v View)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(View{r: r})
}

// View is a read transaction over the hierarchy. It is only valid
// inside the callback passed to Registry.View.
type View struct {
	r *Registry
}

// Root returns the root sentinel.
func (v View) Root() *Task { return v.r.root }

// Count returns the number of live tasks.
func (v View) Count() int { return len(v.r.tasks) }

// Task returns the task with the given ID, or nil.
func (v View) Task(id domain.TaskID) *Task { return v.r.tasks[id] }
