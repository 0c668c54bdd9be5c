// Package service provides the domain services for proctree.
package service

import (
	"github.com/vatlidak/proctree-go/internal/core/domain"
	"github.com/vatlidak/proctree-go/internal/registry"
)

// walk enumerates every task reachable from root in DFS pre-order:
// a task before its descendants, descendants before later siblings.
// The first capacity tasks are emitted; every task is counted. The
// return value is the total number of tasks visited, which exceeds
// capacity when the tree outgrew the buffer.
//
// The traversal keeps no stack and no visited-set: it climbs the
// tree's own parent pointers to find the next unvisited subtree, so
// its extra state is a single cursor regardless of tree size. Each
// task has exactly one parent and the structure is a finite tree for
// as long as the caller holds the registry's shared lock, so the
// climb strictly consumes unvisited ancestors and the walk
// terminates in at most one step per task.
//
// Caller must hold the registry's shared lock (run inside View).
func walk(root *registry.Task, capacity int, emit func(domain.TaskRecord)) int {
	visited := 0
	cur := root
	for {
		if visited < capacity {
			emit(cur.Record())
		}
		visited++

		// Descend to children first.
		if child := cur.EldestChild(); child != nil {
			cur = child
			continue
		}
		// No children: move across to the next sibling.
		if sibling := cur.NextSibling(); sibling != nil {
			cur = sibling
			continue
		}
		// Neither: climb until an ancestor has an unvisited sibling,
		// or the climb reaches the root and the walk is complete.
		for cur != root && cur.NextSibling() == nil {
			cur = cur.Parent()
		}
		if cur == root {
			return visited
		}
		cur = cur.NextSibling()
	}
}
