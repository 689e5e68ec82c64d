package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/DestinyOfLove/KamaCache/internal/singleflight"
	"github.com/DestinyOfLove/KamaCache/internal/util"
	"github.com/DestinyOfLove/KamaCache/policy"
	"github.com/DestinyOfLove/KamaCache/policy/lru"
)

// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
var ErrNoLoader = errors.New("cache: no Loader provided")

// shard pairs one policy core with its hot counters. The core owns the lock;
// counters live on separate cache lines to avoid false sharing between shards.
type shard[K comparable, V any] struct {
	core policy.Store[K, V]

	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

// cache routes every key to exactly one shard; the router itself holds no
// lock, so operations on different shards never contend.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache with the provided Options.
// Defaults:
//   - nil Metrics  -> NoopMetrics
//   - nil Policy   -> LRU
//   - Shards == 0  -> auto, rounded up to the next power of two
//
// Negative Capacity or Shards panic; Capacity 0 is a valid no-op cache.
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	if opt.Capacity < 0 {
		panic("cache: Capacity must be >= 0")
	}
	if opt.Shards < 0 {
		panic("cache: Shards must be >= 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.Policy[K, V]()
	}

	// number of shards -> power of two
	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	c := &cache[K, V]{
		shards: make([]*shard[K, V], sh),
		hash:   util.Fnv64a[K], // fast non-crypto hash for sharding
		opt:    opt,
	}
	perShardCap := (opt.Capacity + sh - 1) / sh // split capacity evenly (ceil)
	for i := 0; i < sh; i++ {
		s := &shard[K, V]{}
		s.core = opt.Policy.New(perShardCap, c.evictedFrom(s))
		c.shards[i] = s
	}
	return c
}

// evictedFrom builds the per-shard eviction callback: count, signal metrics,
// and forward to the user callback if any.
func (c *cache[K, V]) evictedFrom(s *shard[K, V]) func(K, V) {
	return func(k K, v V) {
		s.evicts.Add(1)
		c.opt.Metrics.Evict()
		if cb := c.opt.OnEvict; cb != nil {
			cb(k, v)
		}
	}
}

// ---- Cache[K,V] implementation ----

// Add inserts k→v only if absent.
// Returns false if the key already exists (no update is performed).
func (c *cache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	s := c.getShard(k)
	ok := s.core.Add(k, v)
	c.opt.Metrics.Size(s.core.Len())
	return ok
}

// Put inserts or updates k→v and promotes the entry per the active policy.
func (c *cache[K, V]) Put(k K, v V) {
	if c.closed.Load() {
		return
	}
	s := c.getShard(k)
	s.core.Put(k, v)
	c.opt.Metrics.Size(s.core.Len())
}

// Get returns the value for k and a presence flag.
// On hit, the entry is promoted according to the active policy.
func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	s := c.getShard(k)
	v, ok := s.core.Get(k)
	if ok {
		s.hits.Add(1)
		c.opt.Metrics.Hit()
	} else {
		s.misses.Add(1)
		c.opt.Metrics.Miss()
	}
	return v, ok
}

// Contains reports residency without promoting the entry.
func (c *cache[K, V]) Contains(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).core.Contains(k)
}

// Remove deletes k if present and returns true on success.
func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.getShard(k).core.Remove(k)
}

// Len returns the total number of resident entries across all shards.
func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.core.Len()
	}
	return total
}

// Stats aggregates the per-shard counters into one snapshot.
func (c *cache[K, V]) Stats() Stats {
	var st Stats
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
		st.Entries += s.core.Len()
	}
	return st
}

// Close marks the cache as closed. Afterwards Add, Put, Get, Contains and
// Remove do nothing (Get misses, the others report false); Len and Stats still
// report, and GetOrLoad still calls the Loader but does not store the result.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load for the key
	return c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			c.Put(k, v)
		}
		return v, err
	})
}

// ---- helpers ----

// getShard picks a shard by hashing the key. len(c.shards) is a power of
// two, so ShardIndex takes the mask path.
func (c *cache[K, V]) getShard(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(c.hash(k), len(c.shards))]
}
