package cache

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DestinyOfLove/KamaCache/policy/arc"
	"github.com/DestinyOfLove/KamaCache/policy/lfu"
	"github.com/DestinyOfLove/KamaCache/policy/lru"
)

// Basic Add/Put/Get/Remove semantics.
// Add inserts only if key is absent; Put updates; Remove deletes.
func TestCache_BasicAddPutGetRemove(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 8})
	t.Cleanup(func() { _ = c.Close() })

	if !c.Add("a", 1) {
		t.Fatal("Add a=1 must be true")
	}
	if c.Add("a", 2) {
		t.Fatal("Add duplicate must be false")
	}

	c.Put("a", 11)
	if v, ok := c.Get("a"); !ok || v != 11 {
		t.Fatalf("Get a want 11, got %v ok=%v", v, ok)
	}
	if !c.Contains("a") {
		t.Fatal("Contains a must be true")
	}

	if !c.Remove("a") {
		t.Fatal("Remove a must be true")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be absent after Remove")
	}
}

// Deterministic LRU eviction: single shard, small capacity.
// Accessing "a" promotes it; inserting "c" evicts LRU ("b").
func TestCache_EvictionLRU(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{
		Capacity: 2,
		Shards:   1, // force a single shard so LRU is global
	})
	t.Cleanup(func() { _ = c.Close() })

	c.Put("a", 1) // LRU = a
	c.Put("b", 2) // MRU = b

	if _, ok := c.Get("a"); !ok { // promote a -> MRU
		t.Fatal("expect hit for a")
	}
	c.Put("c", 3) // overflow -> evict LRU (b)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive (promoted)")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("c must be present")
	}
}

// Every policy behind the facade honors the capacity bound, globally and
// per shard (ceil split).
func TestCache_ShardedCapacityBounds(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		opt  Options[string, int]
	}{
		{"lru", Options[string, int]{Capacity: 100, Shards: 4}},
		{"lruk", Options[string, int]{Capacity: 100, Shards: 4, Policy: lru.PolicyK[string, int](64, 2)}},
		{"lfu", Options[string, int]{Capacity: 100, Shards: 4, Policy: lfu.Policy[string, int](4)}},
		{"arc", Options[string, int]{Capacity: 100, Shards: 4, Policy: arc.Policy[string, int]()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := New[string, int](tc.opt)
			t.Cleanup(func() { _ = c.Close() })

			r := rand.New(rand.NewSource(42))
			for i := 0; i < 10_000; i++ {
				c.Put("k:"+strconv.Itoa(r.Intn(1000)), i)
			}
			if got := c.Len(); got > 100 {
				t.Fatalf("total residents %d > capacity 100", got)
			}
			impl := c.(*cache[string, int])
			for i, s := range impl.shards {
				if n := s.core.Len(); n > 25 {
					t.Fatalf("shard %d holds %d > per-shard cap 25", i, n)
				}
			}
		})
	}
}

func TestCache_StatsCounters(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 2, Shards: 1})
	t.Cleanup(func() { _ = c.Close() })

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")    // hit
	c.Get("zzz")  // miss
	c.Put("c", 3) // evicts

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 1/1", st.Hits, st.Misses)
	}
	if st.Evictions != 1 {
		t.Fatalf("evictions=%d, want 1", st.Evictions)
	}
	if st.Entries != 2 {
		t.Fatalf("entries=%d, want 2", st.Entries)
	}
}

func TestCache_OnEvictCallback(t *testing.T) {
	t.Parallel()

	var evicted atomic.Int64
	c := New[string, int](Options[string, int]{
		Capacity: 2,
		Shards:   1,
		OnEvict:  func(string, int) { evicted.Add(1) },
	})
	t.Cleanup(func() { _ = c.Close() })

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	if got := evicted.Load(); got != 1 {
		t.Fatalf("OnEvict ran %d times, want 1", got)
	}
}

func TestCache_ZeroCapacity(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 0, Shards: 2})
	t.Cleanup(func() { _ = c.Close() })

	c.Put("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero-capacity cache must store nothing")
	}
	if c.Len() != 0 {
		t.Fatal("Len must be 0")
	}
}

func TestCache_ClosedIgnoresOps(t *testing.T) {
	t.Parallel()

	c := New[string, int](Options[string, int]{Capacity: 8})
	c.Put("a", 1)
	_ = c.Close()

	c.Put("b", 2)
	if _, ok := c.Get("a"); ok {
		t.Fatal("Get after Close must miss")
	}
	if c.Add("c", 3) {
		t.Fatal("Add after Close must fail")
	}
}

// Singleflight test: concurrent GetOrLoad calls for the same key
// should trigger the Loader exactly once; subsequent calls are cache hits.
func TestCache_GetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c := New[string, string](Options[string, string]{
		Capacity: 64,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}

	if v, err := c.GetOrLoad(context.Background(), "k"); err != nil || v != "v:k" {
		t.Fatalf("second GetOrLoad failed: v=%q err=%v", v, err)
	}
}

func TestCache_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c := New[string, string](Options[string, string]{Capacity: 8})
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.GetOrLoad(context.Background(), "k"); err != ErrNoLoader {
		t.Fatalf("err = %v, want ErrNoLoader", err)
	}
}

// Hotspot workload: 20 hot keys vs 5000 cold, 70% hot accesses. All three
// policies must produce hits, and the frequency-aware policies should not
// trail LRU by much on the steady-state hot set. The comparison is
// qualitative; the hard pass/fail is the capacity bound.
func TestCache_HotspotWorkloadAllPolicies(t *testing.T) {
	t.Parallel()

	const (
		hotKeys  = 20
		coldKeys = 5000
		hotPct   = 70
		capacity = 50
		ops      = 200_000
	)

	run := func(c Cache[int, string]) (hitRate float64) {
		r := rand.New(rand.NewSource(7))
		key := func(i int) int {
			if i%100 < hotPct {
				return r.Intn(hotKeys)
			}
			return hotKeys + r.Intn(coldKeys)
		}
		for i := 0; i < ops; i++ {
			k := key(i)
			c.Put(k, "value"+strconv.Itoa(k))
		}
		hits, total := 0, 0
		for i := 0; i < ops; i++ {
			total++
			if _, ok := c.Get(key(i)); ok {
				hits++
			}
		}
		if got := c.Len(); got > capacity {
			t.Fatalf("residents %d > capacity %d", got, capacity)
		}
		return float64(hits) / float64(total)
	}

	rates := map[string]float64{
		"lru": run(New[int, string](Options[int, string]{Capacity: capacity, Shards: 1})),
		"lfu": run(New[int, string](Options[int, string]{Capacity: capacity, Shards: 1, Policy: lfu.Policy[int, string](0)})),
		"arc": run(New[int, string](Options[int, string]{Capacity: capacity, Shards: 1, Policy: arc.Policy[int, string]()})),
	}
	for name, rate := range rates {
		if rate <= 0 {
			t.Fatalf("%s hit rate must be positive, got %f", name, rate)
		}
		t.Logf("%s hit rate: %.2f%%", name, rate*100)
	}
}

func TestCache_NegativeCapacityPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("negative Capacity must panic")
		}
	}()
	New[string, int](Options[string, int]{Capacity: -1})
}
