// Package cache provides a fast, generic, sharded in-memory cache with
// pluggable eviction policies: LRU (default), k-promotion LRU, LFU with
// optional aging decay, and ARC.
//
// Design
//
//   - Concurrency: the cache is split into shards, each an independent
//     eviction core behind its own mutex. The default shard count is chosen
//     by a heuristic (ReasonableShardCount) and is a power of two. Keys are
//     routed with a 64-bit FNV-1a hash; operations on different shards
//     never contend and no operation crosses a shard boundary.
//
//   - Storage: each core keeps a key→node index and one or more intrusive
//     MRU↔LRU doubly linked lists for ordering (LFU buckets them by access
//     count, ARC keeps four). All operations are O(1) expected.
//
//   - Policies: eviction is pluggable via the policy package. Each policy
//     core is also usable unsharded on its own (policy/lru, policy/lfu,
//     policy/arc constructors).
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug a Prometheus adapter to export
//     metrics. Per-shard hit/miss/eviction counters are aggregated by
//     Stats().
//
//   - Callbacks: Options.OnEvict(k, v) is called for every policy eviction.
//
// Basic usage
//
//	// Create an LRU cache with capacity for 10k entries.
//	c := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	c.Put("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// Using an alternative policy (ARC)
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 50_000,
//	    Policy:   arc.Policy[string, string](),
//	})
//
// With GetOrLoad (singleflight)
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from DB
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Exporting metrics (example Prometheus adapter)
//
//	m := prom.New(nil, "kamacache", "demo", nil) // implements Metrics
//	c := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Typical operation cost is
// O(1) expected time: one map access and a constant amount of pointer fixes.
// Eviction work is also O(1) per removed item.
//
// See cache/options.go for all available Options fields and package policy
// for the Store/Factory contracts used to implement custom strategies.
package cache
