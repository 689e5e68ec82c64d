package cache

import (
	"context"

	"github.com/DestinyOfLove/KamaCache/policy"
)

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - nil Policy   => LRU
//   - Shards == 0  => auto (rounded up to power of two); negative panics
//   - nil Metrics  => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the total resident entry limit, split across shards with
	// ceiling division. 0 yields a valid cache that stores nothing.
	Capacity int

	// Shards defines the number of shards. If 0, an automatic value is chosen
	// (≈ 2*GOMAXPROCS) and rounded to the next power of two.
	Shards int

	// Policy is a pluggable eviction policy factory (LRU/LRU-k/LFU/ARC);
	// nil => LRU by default. Each shard gets its own core instance.
	Policy policy.Factory[K, V]

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// Observability
	// OnEvict is called for every policy eviction under the shard lock;
	// keep callbacks lightweight.
	OnEvict func(k K, v V)
	Metrics Metrics
}
