package registry

import (
	"testing"

	"github.com/vatlidak/proctree-go/internal/core/domain"
)

func TestNew_RootSentinel(t *testing.T) {
	reg := New()

	if reg.Count() != 1 {
		t.Fatalf("Count = %d, want 1", reg.Count())
	}

	rec, err := reg.Lookup(domain.RootTaskID)
	if err != nil {
		t.Fatalf("Lookup(root): %v", err)
	}
	if rec.Label != RootLabel {
		t.Fatalf("root label = %q, want %q", rec.Label, RootLabel)
	}
	if rec.ParentID != domain.NoTask {
		t.Fatalf("root parent = %v, want none", rec.ParentID)
	}
	if rec.EldestChildID != domain.NoTask || rec.NextSiblingID != domain.NoTask {
		t.Fatalf("fresh root has structural neighbors: %+v", rec)
	}
}

func TestSpawn(t *testing.T) {
	reg := New()

	a, err := reg.Spawn(domain.RootTaskID, "worker-a", 1000, domain.StateRunnable)
	if err != nil {
		t.Fatalf("Spawn(a): %v", err)
	}
	b, err := reg.Spawn(domain.RootTaskID, "worker-b", 1000, domain.StateSleeping)
	if err != nil {
		t.Fatalf("Spawn(b): %v", err)
	}
	if a == b {
		t.Fatalf("duplicate IDs: %v", a)
	}

	// Most recently created child is the eldest.
	root, _ := reg.Lookup(domain.RootTaskID)
	if root.EldestChildID != b {
		t.Fatalf("root eldest child = %v, want %v", root.EldestChildID, b)
	}

	recB, _ := reg.Lookup(b)
	if recB.NextSiblingID != a {
		t.Fatalf("b's next sibling = %v, want %v", recB.NextSiblingID, a)
	}
	recA, _ := reg.Lookup(a)
	if recA.NextSiblingID != domain.NoTask {
		t.Fatalf("a's next sibling = %v, want none", recA.NextSiblingID)
	}
	if recA.ParentID != domain.RootTaskID || recB.ParentID != domain.RootTaskID {
		t.Fatal("children not parented to root")
	}
}

func TestSpawn_Errors(t *testing.T) {
	reg := New()

	if _, err := reg.Spawn(domain.TaskID(999), "orphan", 0, domain.StateRunnable); !domain.IsDomainError(err, "PT-TASK-4040") {
		t.Fatalf("Spawn(missing parent) err = %v, want PT-TASK-4040", err)
	}
	if _, err := reg.Spawn(domain.RootTaskID, "", 0, domain.StateRunnable); !domain.IsDomainError(err, "PT-ARG-1002") {
		t.Fatalf("Spawn(no label) err = %v, want PT-ARG-1002", err)
	}
	if _, err := reg.Spawn(domain.RootTaskID, "x", 0, domain.TaskState("flying")); !domain.IsDomainError(err, "PT-ARG-1001") {
		t.Fatalf("Spawn(bad state) err = %v, want PT-ARG-1001", err)
	}
}

func TestSpawn_TruncatesLabel(t *testing.T) {
	reg := New()

	id, err := reg.Spawn(domain.RootTaskID, "very-long-process-name", 0, "")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	rec, _ := reg.Lookup(id)
	if len(rec.Label) != domain.MaxLabelLength {
		t.Fatalf("label %q not truncated to %d", rec.Label, domain.MaxLabelLength)
	}
	if rec.State != domain.StateRunnable {
		t.Fatalf("default state = %v, want runnable", rec.State)
	}
}

func TestExit_Leaf(t *testing.T) {
	reg := New()
	a, _ := reg.Spawn(domain.RootTaskID, "a", 0, "")
	b, _ := reg.Spawn(domain.RootTaskID, "b", 0, "")

	// Exit the eldest; its younger sibling takes its place.
	if err := reg.Exit(b); err != nil {
		t.Fatalf("Exit(b): %v", err)
	}
	root, _ := reg.Lookup(domain.RootTaskID)
	if root.EldestChildID != a {
		t.Fatalf("root eldest child = %v, want %v", root.EldestChildID, a)
	}
	if _, err := reg.Lookup(b); !domain.IsDomainError(err, "PT-TASK-4040") {
		t.Fatalf("Lookup(exited) err = %v", err)
	}
	if reg.Count() != 2 {
		t.Fatalf("Count = %d, want 2", reg.Count())
	}

	// Exit a middle/last sibling too.
	c, _ := reg.Spawn(domain.RootTaskID, "c", 0, "")
	if err := reg.Exit(a); err != nil {
		t.Fatalf("Exit(a): %v", err)
	}
	recC, _ := reg.Lookup(c)
	if recC.NextSiblingID != domain.NoTask {
		t.Fatalf("c's next sibling = %v, want none", recC.NextSiblingID)
	}
}

func TestExit_ReparentsChildrenToRoot(t *testing.T) {
	reg := New()
	parent, _ := reg.Spawn(domain.RootTaskID, "parent", 0, "")
	c1, _ := reg.Spawn(parent, "c1", 0, "")
	c2, _ := reg.Spawn(parent, "c2", 0, "")
	sibling, _ := reg.Spawn(domain.RootTaskID, "sibling", 0, "")

	if err := reg.Exit(parent); err != nil {
		t.Fatalf("Exit(parent): %v", err)
	}

	// Orphans go to the head of the root's chain, keeping their
	// relative order (c2 was the eldest).
	root, _ := reg.Lookup(domain.RootTaskID)
	if root.EldestChildID != c2 {
		t.Fatalf("root eldest child = %v, want %v", root.EldestChildID, c2)
	}
	rec2, _ := reg.Lookup(c2)
	if rec2.ParentID != domain.RootTaskID || rec2.NextSiblingID != c1 {
		t.Fatalf("c2 after reparent = %+v", rec2)
	}
	rec1, _ := reg.Lookup(c1)
	if rec1.ParentID != domain.RootTaskID || rec1.NextSiblingID != sibling {
		t.Fatalf("c1 after reparent = %+v", rec1)
	}
}

func TestExit_RootImmortal(t *testing.T) {
	reg := New()
	if err := reg.Exit(domain.RootTaskID); !domain.IsDomainError(err, "PT-TASK-4003") {
		t.Fatalf("Exit(root) err = %v, want PT-TASK-4003", err)
	}
}

func TestSetState(t *testing.T) {
	reg := New()
	id, _ := reg.Spawn(domain.RootTaskID, "a", 0, "")

	if err := reg.SetState(id, domain.StateZombie); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	rec, _ := reg.Lookup(id)
	if rec.State != domain.StateZombie {
		t.Fatalf("state = %v, want zombie", rec.State)
	}

	if err := reg.SetState(id, "flying"); !domain.IsDomainError(err, "PT-ARG-1001") {
		t.Fatalf("SetState(bad) err = %v", err)
	}
	if err := reg.SetState(domain.TaskID(999), domain.StateZombie); !domain.IsDomainError(err, "PT-TASK-4040") {
		t.Fatalf("SetState(missing) err = %v", err)
	}
}

func TestIDsNeverReused(t *testing.T) {
	reg := New()
	a, _ := reg.Spawn(domain.RootTaskID, "a", 0, "")
	if err := reg.Exit(a); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	b, _ := reg.Spawn(domain.RootTaskID, "b", 0, "")
	if b <= a {
		t.Fatalf("ID reused: %v after %v", b, a)
	}
}

func TestView_Accessors(t *testing.T) {
	reg := New()
	a, _ := reg.Spawn(domain.RootTaskID, "a", 42, domain.StateSleeping)
	c, _ := reg.Spawn(a, "c", 42, "")

	reg.View(func(v View) {
		if v.Count() != 3 {
			t.Fatalf("View.Count = %d, want 3", v.Count())
		}
		root := v.Root()
		if root.ID() != domain.RootTaskID || root.Parent() != nil {
			t.Fatal("bad root accessor")
		}

		ta := root.EldestChild()
		if ta == nil || ta.ID() != a {
			t.Fatalf("root eldest child accessor = %v", ta)
		}
		if ta.Owner() != 42 || ta.State() != domain.StateSleeping || ta.Label() != "a" {
			t.Fatalf("task accessor mismatch: %q %d %v", ta.Label(), ta.Owner(), ta.State())
		}
		if ta.Parent() != root {
			t.Fatal("child's parent accessor != root")
		}

		tc := ta.EldestChild()
		if tc == nil || tc.ID() != c || tc.NextSibling() != nil {
			t.Fatalf("grandchild accessor = %v", tc)
		}

		if got := v.Task(c); got != tc {
			t.Fatal("View.Task(id) mismatch")
		}
	})
}
