// Package lfu implements the Least-Frequently-Used eviction core with
// frequency buckets, min-frequency tracking, and optional aging decay.
package lfu

import (
	"slices"
	"sync"

	"github.com/DestinyOfLove/KamaCache/internal/list"
	"github.com/DestinyOfLove/KamaCache/policy"
)

// Option configures a Cache via the functional options pattern.
type Option[K comparable, V any] func(*Cache[K, V])

// WithOnEvict registers a callback invoked whenever an entry is evicted to
// satisfy the capacity limit. The callback runs under the cache lock.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) { c.onEvict = fn }
}

// WithMaxAvgFreq enables aging decay: whenever the integer mean access count
// of the resident entries (total count / entries, rounded down) exceeds
// maxAvg, every count is halved (floored, minimum 1)
// and the buckets are rebuilt. Without decay, long-lived entries accumulate
// counts that newcomers can never catch up to. 0 disables decay.
func WithMaxAvgFreq[K comparable, V any](maxAvg uint32) Option[K, V] {
	return func(c *Cache[K, V]) { c.maxAvgFreq = maxAvg }
}

// Cache is a frequency-bucketed LFU: the index maps keys to nodes, each node
// lives in the recency list of its exact access count, and minFreq points at
// the smallest populated bucket. Eviction takes the oldest node of the
// minFreq bucket. All operations are amortized O(1); all methods are safe
// for concurrent use.
//
// Bucket orientation follows the recency-list convention: fresh arrivals at
// the front, so the bucket tail is the oldest entry at that count.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	m     map[K]*list.Node[K, V]
	freqs map[uint32]*list.List[K, V]

	minFreq    uint32
	totalFreq  uint64
	cap        int
	maxAvgFreq uint32
	onEvict    func(K, V)
}

// New constructs an LFU cache bounded by capacity entries.
// A capacity of 0 yields a valid no-op cache; negative capacity panics.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 0 {
		panic("lfu: capacity must be >= 0")
	}
	c := &Cache[K, V]{
		m:     make(map[K]*list.Node[K, V], capacity),
		freqs: make(map[uint32]*list.List[K, V]),
		cap:   capacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put inserts or updates k→v. An update counts as an access (the entry moves
// up one bucket); an insert lands in bucket 1, evicting the oldest minFreq
// entry first when the cache is full.
func (c *Cache[K, V]) Put(k K, v V) {
	if c.cap == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.m[k]; ok {
		n.Val = v
		c.touchLocked(n)
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

// insertLocked admits a new key into bucket 1, evicting first when full.
// Caller holds c.mu.
func (c *Cache[K, V]) insertLocked(k K, v V) {
	if len(c.m) >= c.cap {
		c.evictLocked()
	}
	n := &list.Node[K, V]{Key: k, Val: v, Freq: 1}
	c.bucketLocked(1).PushFront(n)
	c.m[k] = n
	c.minFreq = 1
	c.totalFreq++
	c.maybeDecayLocked()
}

// Get returns the value for k. A hit moves the entry up one frequency
// bucket (to that bucket's fresh end) and may trigger aging decay.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	c.touchLocked(n)
	return n.Val, true
}

// Contains reports residency without touching frequency counts.
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
	c.unlinkLocked(n)
	c.totalFreq -= uint64(n.Freq)
	delete(c.m, k)

	// Re-locate the smallest populated bucket if we emptied it.
	if len(c.m) == 0 {
		c.minFreq = 0
	} else if n.Freq == c.minFreq {
		for c.freqs[c.minFreq] == nil {
			c.minFreq++
		}
	}
	return true
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	n := len(c.m)
	c.mu.Unlock()
	return n
}

// -------------------- internals (mu held) --------------------

// bucketLocked returns the recency list for freq, creating it on demand.
func (c *Cache[K, V]) bucketLocked(freq uint32) *list.List[K, V] {
	b := c.freqs[freq]
	if b == nil {
		b = list.New[K, V]()
		c.freqs[freq] = b
	}
	return b
}

// unlinkLocked detaches n from its bucket, dropping the bucket if emptied.
func (c *Cache[K, V]) unlinkLocked(n *list.Node[K, V]) {
	b := c.freqs[n.Freq]
	b.Remove(n)
	if b.Len() == 0 {
		delete(c.freqs, n.Freq)
	}
}

// touchLocked moves n from bucket f to bucket f+1 and advances minFreq past
// an emptied minimum bucket.
func (c *Cache[K, V]) touchLocked(n *list.Node[K, V]) {
	f := n.Freq
	c.unlinkLocked(n)
	if c.freqs[f] == nil && c.minFreq == f {
		c.minFreq = f + 1
	}
	n.Freq = f + 1
	c.bucketLocked(f + 1).PushFront(n)
	c.totalFreq++
	c.maybeDecayLocked()
}

// evictLocked drops the oldest entry of the minFreq bucket.
func (c *Cache[K, V]) evictLocked() {
	b := c.freqs[c.minFreq]
	if b == nil {
		return
	}
	n := b.PopBack()
	if b.Len() == 0 {
		delete(c.freqs, c.minFreq)
	}
	c.totalFreq -= uint64(n.Freq)
	delete(c.m, n.Key)
	if c.onEvict != nil {
		c.onEvict(n.Key, n.Val)
	}
}

// maybeDecayLocked halves every access count once the integer running
// average exceeds maxAvgFreq, then rebuilds the buckets.
func (c *Cache[K, V]) maybeDecayLocked() {
	if c.maxAvgFreq == 0 || len(c.m) == 0 {
		return
	}
	if c.totalFreq/uint64(len(c.m)) <= uint64(c.maxAvgFreq) {
		return
	}

	// Rebuild from the old buckets in ascending frequency order so relative
	// age survives the halving: the oldest node of each source bucket is
	// pushed first and therefore stays closest to the eviction end.
	old := c.freqs
	keys := make([]uint32, 0, len(old))
	for f := range old {
		keys = append(keys, f)
	}
	slices.Sort(keys)

	c.freqs = make(map[uint32]*list.List[K, V], len(old))
	c.totalFreq = 0
	c.minFreq = 0
	for _, f := range keys {
		b := old[f]
		for n := b.PopBack(); n != nil; n = b.PopBack() {
			nf := n.Freq / 2
			if nf < 1 {
				nf = 1
			}
			n.Freq = nf
			c.bucketLocked(nf).PushFront(n)
			c.totalFreq += uint64(nf)
			if c.minFreq == 0 || nf < c.minFreq {
				c.minFreq = nf
			}
		}
	}
}

// ---- policy.Factory ----

type lfuFactory[K comparable, V any] struct {
	maxAvgFreq uint32
}

// Policy returns a policy.Factory producing per-shard LFU cores.
// maxAvgFreq applies per shard; 0 disables decay.
func Policy[K comparable, V any](maxAvgFreq uint32) policy.Factory[K, V] {
	return lfuFactory[K, V]{maxAvgFreq: maxAvgFreq}
}

func (f lfuFactory[K, V]) New(capacity int, onEvict func(K, V)) policy.Store[K, V] {
	opts := []Option[K, V]{WithMaxAvgFreq[K, V](f.maxAvgFreq)}
	if onEvict != nil {
		opts = append(opts, WithOnEvict[K, V](onEvict))
	}
	return New(capacity, opts...)
}

var _ policy.Store[string, int] = (*Cache[string, int])(nil)
