package lru

import (
	"strconv"
	"testing"
)

// checkConsistency verifies that the index and the list agree: same size,
// and every indexed key resolves to a node reachable in the list.
func checkConsistency[K comparable, V any](t *testing.T, c *Cache[K, V]) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.m) != c.l.Len() {
		t.Fatalf("index size %d != list size %d", len(c.m), c.l.Len())
	}
	seen := 0
	for n := c.l.Front(); n != nil; n = n.Next() {
		if c.m[n.Key] != n {
			t.Fatalf("key %v in list but index points elsewhere", n.Key)
		}
		seen++
		if seen > c.l.Len() {
			t.Fatal("list walk exceeds recorded length (cycle?)")
		}
	}
	if seen != c.l.Len() {
		t.Fatalf("walked %d nodes, list reports %d", seen, c.l.Len())
	}
}

func TestLRU_PutGetOverwrite(t *testing.T) {
	t.Parallel()

	c := New[string, string](4)
	c.Put("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get a = %q %v", v, ok)
	}
	c.Put("a", "2")
	if v, ok := c.Get("a"); !ok || v != "2" {
		t.Fatalf("overwrite lost: %q %v", v, ok)
	}
	if _, ok := c.Get("nope"); ok {
		t.Fatal("phantom hit")
	}
	checkConsistency(t, c)
}

// Seed scenario: c=2; put(1,a) put(2,b) get(1) put(3,c) — the Get promotes
// key 1, so key 2 is the LRU victim.
func TestLRU_EvictionOrder(t *testing.T) {
	t.Parallel()

	c := New[int, string](2)
	c.Put(1, "a")
	c.Put(2, "b")
	if _, ok := c.Get(1); !ok {
		t.Fatal("expect hit for 1")
	}
	c.Put(3, "c")

	if _, ok := c.Get(2); ok {
		t.Fatal("2 must be evicted")
	}
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Fatal("1 must survive (promoted)")
	}
	if v, ok := c.Get(3); !ok || v != "c" {
		t.Fatal("3 must be present")
	}
	checkConsistency(t, c)
}

// Filling 0..c-1 then inserting key c evicts key 0; after touching key 0 on
// a full cache, the next insert evicts key 1 instead.
func TestLRU_TailVictim(t *testing.T) {
	t.Parallel()

	const size = 8
	c := New[int, int](size)
	for i := 0; i < size; i++ {
		c.Put(i, i)
	}
	c.Put(size, size)
	if c.Contains(0) {
		t.Fatal("0 must be the first victim")
	}

	// Refill and promote 0 before overflowing.
	c = New[int, int](size)
	for i := 0; i < size; i++ {
		c.Put(i, i)
	}
	c.Get(0)
	c.Put(size, size)
	if !c.Contains(0) {
		t.Fatal("0 must survive after promotion")
	}
	if c.Contains(1) {
		t.Fatal("1 must be the victim after 0 was promoted")
	}
}

func TestLRU_CapacityNeverExceeded(t *testing.T) {
	t.Parallel()

	const size = 10
	c := New[string, int](size)
	for i := 0; i < 1000; i++ {
		c.Put("k"+strconv.Itoa(i%37), i)
		if c.Len() > size {
			t.Fatalf("resident %d > capacity %d", c.Len(), size)
		}
	}
	checkConsistency(t, c)
}

func TestLRU_ZeroCapacityIsNoop(t *testing.T) {
	t.Parallel()

	c := New[string, int](0)
	c.Put("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero-capacity cache must store nothing")
	}
	if c.Add("a", 1) {
		t.Fatal("Add on zero-capacity cache must fail")
	}
	if c.Len() != 0 {
		t.Fatal("Len must be 0")
	}
}

func TestLRU_AddRemoveContains(t *testing.T) {
	t.Parallel()

	c := New[string, int](4)
	if !c.Add("a", 1) {
		t.Fatal("Add a must succeed")
	}
	if c.Add("a", 2) {
		t.Fatal("duplicate Add must fail")
	}
	if v, _ := c.Get("a"); v != 1 {
		t.Fatal("failed Add must not overwrite")
	}

	if !c.Contains("a") {
		t.Fatal("Contains a must be true")
	}
	if !c.Remove("a") {
		t.Fatal("Remove a must be true")
	}
	if c.Remove("a") {
		t.Fatal("second Remove must be false")
	}
	if c.Contains("a") {
		t.Fatal("a must be gone")
	}
	checkConsistency(t, c)
}

func TestLRU_EvictCallback(t *testing.T) {
	t.Parallel()

	var evicted []int
	c := New(2, WithOnEvict[int, string](func(k int, _ string) {
		evicted = append(evicted, k)
	}))
	c.Put(1, "a")
	c.Put(2, "b")
	c.Put(3, "c")
	c.Remove(2) // explicit removal is not an eviction

	if len(evicted) != 1 || evicted[0] != 1 {
		t.Fatalf("evicted = %v, want [1]", evicted)
	}
}

func TestLRU_NegativeCapacityPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("negative capacity must panic")
		}
	}()
	New[int, int](-1)
}
