package cmap

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestBasicOperations(t *testing.T) {
	m := New[string, int]()

	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	if !m.Has("b") {
		t.Fatal("Has(b) = false")
	}
	if m.Has("c") {
		t.Fatal("Has(c) = true")
	}
	if n := m.Count(); n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}

	m.Delete("a")
	if m.Has("a") {
		t.Fatal("Has(a) after Delete")
	}

	m.Clear()
	if n := m.Count(); n != 0 {
		t.Fatalf("Count after Clear = %d", n)
	}
}

func TestShardCountFallback(t *testing.T) {
	for _, n := range []int{0, -1, 3, 17} {
		m := NewWithShards[string, int](n)
		if len(m.shards) != DefaultShardCount {
			t.Fatalf("NewWithShards(%d) made %d shards", n, len(m.shards))
		}
	}
	if m := NewWithShards[string, int](64); len(m.shards) != 64 {
		t.Fatalf("NewWithShards(64) made %d shards", len(m.shards))
	}
}

func TestGetOrSet(t *testing.T) {
	m := New[string, int]()

	v, existed := m.GetOrSet("k", 10)
	if existed || v != 10 {
		t.Fatalf("first GetOrSet = %d, %v", v, existed)
	}
	v, existed = m.GetOrSet("k", 20)
	if !existed || v != 10 {
		t.Fatalf("second GetOrSet = %d, %v", v, existed)
	}
}

func TestUpdate(t *testing.T) {
	m := New[string, int]()

	got := m.Update("counter", func(v int, exists bool) int {
		if exists {
			t.Fatal("exists on first update")
		}
		return v + 1
	})
	if got != 1 {
		t.Fatalf("first Update = %d", got)
	}
	got = m.Update("counter", func(v int, exists bool) int {
		if !exists {
			t.Fatal("missing on second update")
		}
		return v + 1
	})
	if got != 2 {
		t.Fatalf("second Update = %d", got)
	}
}

func TestPop(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 7)

	if v, ok := m.Pop("k"); !ok || v != 7 {
		t.Fatalf("Pop = %d, %v", v, ok)
	}
	if _, ok := m.Pop("k"); ok {
		t.Fatal("second Pop found the key")
	}
}

func TestRangeAndKeys(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}

	seen := 0
	m.Range(func(_ string, _ int) bool {
		seen++
		return true
	})
	if seen != 10 {
		t.Fatalf("Range visited %d, want 10", seen)
	}

	stopped := 0
	m.Range(func(_ string, _ int) bool {
		stopped++
		return stopped < 3
	})
	if stopped != 3 {
		t.Fatalf("early-stop Range visited %d, want 3", stopped)
	}

	keys := m.Keys()
	sort.Strings(keys)
	if len(keys) != 10 || keys[0] != "k0" || keys[9] != "k9" {
		t.Fatalf("Keys = %v", keys)
	}
	if vals := m.Values(); len(vals) != 10 {
		t.Fatalf("Values returned %d entries", len(vals))
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int, int]()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := g*1000 + i
				m.Set(key, i)
				if v, ok := m.Get(key); !ok || v != i {
					t.Errorf("Get(%d) = %d, %v", key, v, ok)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	if n := m.Count(); n != 8000 {
		t.Fatalf("Count = %d, want 8000", n)
	}
}

func TestConcurrentUpdate(t *testing.T) {
	m := New[string, int]()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				m.Update("shared", func(v int, _ bool) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	if v, _ := m.Get("shared"); v != 8000 {
		t.Fatalf("shared counter = %d, want 8000", v)
	}
}
