// Package lru implements the Least-Recently-Used eviction core and its
// k-promotion variant (see lruk.go).
package lru

import (
	"sync"

	"github.com/DestinyOfLove/KamaCache/internal/list"
	"github.com/DestinyOfLove/KamaCache/policy"
)

// Option configures a Cache via the functional options pattern.
type Option[K comparable, V any] func(*Cache[K, V])

// WithOnEvict registers a callback invoked whenever an entry is evicted to
// satisfy the capacity limit (explicit Remove does not count).
// The callback runs under the cache lock — keep it fast.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) { c.onEvict = fn }
}

// Cache is a classic move-to-front LRU: a key→node index over a single
// intrusive recency list (head=MRU, tail=LRU). Overflow evicts the tail.
// All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*list.Node[K, V]
	l  *list.List[K, V]

	cap     int
	onEvict func(K, V)
}

// New constructs an LRU cache bounded by capacity entries.
// A capacity of 0 yields a valid no-op cache; negative capacity panics.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 0 {
		panic("lru: capacity must be >= 0")
	}
	c := &Cache[K, V]{
		m:   make(map[K]*list.Node[K, V], capacity),
		l:   list.New[K, V](),
		cap: capacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put inserts or updates k→v. An existing entry is overwritten and promoted
// to MRU; a new entry evicts the LRU tail first when the cache is full.
func (c *Cache[K, V]) Put(k K, v V) {
	if c.cap == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.m[k]; ok {
		n.Val = v
		c.l.MoveToFront(n)
		return
	}
	c.insertLocked(k, v)
}

// Add inserts k→v only if k is not resident; it returns false on duplicates.
func (c *Cache[K, V]) Add(k K, v V) bool {
	if c.cap == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.m[k]; ok {
		return false
	}
	c.insertLocked(k, v)
	return true
}

// insertLocked admits a new key at MRU, evicting the tail first when full.
// Caller holds c.mu.
func (c *Cache[K, V]) insertLocked(k K, v V) {
	if c.l.Len() >= c.cap {
		c.evictTailLocked()
	}
	n := &list.Node[K, V]{Key: k, Val: v}
	c.l.PushFront(n)
	c.m[k] = n
}

// Get returns the value for k and promotes the entry to MRU on hit.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	c.l.MoveToFront(n)
	return n.Val, true
}

// Contains reports residency without touching the recency order.
func (c *Cache[K, V]) Contains(k K) bool {
	c.mu.Lock()
	_, ok := c.m[k]
	c.mu.Unlock()
	return ok
}

// Remove deletes k if resident and returns true on success.
func (c *Cache[K, V]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		return false
	}
	c.l.Remove(n)
	delete(c.m, k)
	return true
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	n := c.l.Len()
	c.mu.Unlock()
	return n
}

// evictTailLocked drops the LRU entry. Caller holds c.mu.
func (c *Cache[K, V]) evictTailLocked() {
	n := c.l.PopBack()
	if n == nil {
		return
	}
	delete(c.m, n.Key)
	if c.onEvict != nil {
		c.onEvict(n.Key, n.Val)
	}
}

// ---- policy.Factory ----

type lruFactory[K comparable, V any] struct{}

// Policy returns a policy.Factory producing per-shard LRU cores.
func Policy[K comparable, V any]() policy.Factory[K, V] { return lruFactory[K, V]{} }

func (lruFactory[K, V]) New(capacity int, onEvict func(K, V)) policy.Store[K, V] {
	if onEvict == nil {
		return New[K, V](capacity)
	}
	return New(capacity, WithOnEvict[K, V](onEvict))
}

var _ policy.Store[string, int] = (*Cache[string, int])(nil)
