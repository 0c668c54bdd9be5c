// Package registry maintains the live task hierarchy.
//
// The hierarchy is a single tree rooted at a sentinel task that is
// created with the registry and never exits. Every other task has
// exactly one parent; parent/child/sibling links are kept as direct
// pointers, the shape the snapshot walker consumes.
//
// Concurrency:
//
// One reader/writer lock guards the whole structure. Mutations
// (Spawn, Exit, SetState) take the exclusive lock, so a reader
// inside View never observes a half-updated pointer set. View and
// Count take the shared lock; task accessors are only legal while
// that shared lock is held.
package registry
