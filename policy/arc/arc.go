// Package arc implements the Adaptive Replacement Cache eviction core.
//
// ARC splits the resident entries between a recency list T1 (seen once) and
// a frequency list T2 (seen at least twice) and remembers recently evicted
// keys in the ghost lists B1 and B2 (keys only, no values). The adaptive
// target p is the desired size of T1: a hit in B1 means T1 was evicted too
// aggressively and grows p; a hit in B2 shrinks it. The four key sets are
// pairwise disjoint and obey
//
//	|T1|+|T2| <= c,  |T1|+|B1| <= c,  |T2|+|B2| <= 2c,
//	|T1|+|T2|+|B1|+|B2| <= 2c.
package arc

import (
	"sync"

	"github.com/DestinyOfLove/KamaCache/internal/list"
	"github.com/DestinyOfLove/KamaCache/policy"
)

// Option configures a Cache via the functional options pattern.
type Option[K comparable, V any] func(*Cache[K, V])

// WithOnEvict registers a callback invoked whenever an entry's value is
// discarded (demotion to a ghost list or direct eviction from T1).
// The callback runs under the cache lock — keep it fast.
func WithOnEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) { c.onEvict = fn }
}

// Cache is a self-locking ARC core. All methods are safe for concurrent use;
// every operation touches O(1) nodes across the four lists.
type Cache[K comparable, V any] struct {
	mu  sync.Mutex
	cap int
	p   int // target size of T1, 0 <= p <= cap

	t1, t2 *list.List[K, V] // resident: values stored
	b1, b2 *list.List[K, V] // ghosts: keys only, values zeroed

	t1Idx, t2Idx map[K]*list.Node[K, V]
	b1Idx, b2Idx map[K]*list.Node[K, V]

	onEvict func(K, V)
}

// New constructs an ARC cache bounded by capacity resident entries.
// A capacity of 0 yields a valid no-op cache; negative capacity panics.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 0 {
		panic("arc: capacity must be >= 0")
	}
	c := &Cache[K, V]{
		cap:   capacity,
		t1:    list.New[K, V](),
		t2:    list.New[K, V](),
		b1:    list.New[K, V](),
		b2:    list.New[K, V](),
		t1Idx: make(map[K]*list.Node[K, V], capacity),
		t2Idx: make(map[K]*list.Node[K, V], capacity),
		b1Idx: make(map[K]*list.Node[K, V], capacity),
		b2Idx: make(map[K]*list.Node[K, V], capacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put inserts or updates k→v, running the four-case ARC access rule.
func (c *Cache[K, V]) Put(k K, v V) {
	if c.cap == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// Case I: resident hit — promote to MRU of T2.
	if n, ok := c.t1Idx[k]; ok {
		n.Val = v
		c.promoteLocked(n)
		return
	}
	if n, ok := c.t2Idx[k]; ok {
		n.Val = v
		c.t2.MoveToFront(n)
		return
	}

	c.missLocked(k, v)
}

// Add inserts k→v only if k is not resident; it returns false on duplicates.
// A ghost key is not resident, so Add completes its re-admission.
func (c *Cache[K, V]) Add(k K, v V) bool {
	if c.cap == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.t1Idx[k]; ok {
		return false
	}
	if _, ok := c.t2Idx[k]; ok {
		return false
	}
	c.missLocked(k, v)
	return true
}

// missLocked runs the non-resident cases of the ARC access rule
// (ghost re-admission or cold insert). Caller holds c.mu.
func (c *Cache[K, V]) missLocked(k K, v V) {
	// Case II: ghost hit in B1 — the recency side was starved; grow p.
	if g, ok := c.b1Idx[k]; ok {
		c.p = min(c.cap, c.p+adaptStep(c.b2.Len(), c.b1.Len()))
		c.replaceLocked(false)
		c.b1.Remove(g)
		delete(c.b1Idx, k)
		c.admitT2Locked(k, v)
		return
	}

	// Case III: ghost hit in B2 — the frequency side was starved; shrink p.
	if g, ok := c.b2Idx[k]; ok {
		c.p = max(0, c.p-adaptStep(c.b1.Len(), c.b2.Len()))
		c.replaceLocked(true)
		c.b2.Remove(g)
		delete(c.b2Idx, k)
		c.admitT2Locked(k, v)
		return
	}

	// Case IV: complete miss.
	if c.t1.Len()+c.b1.Len() >= c.cap {
		if c.t1.Len() < c.cap {
			// Directory L1 full but T1 has room: recycle the oldest ghost.
			if g := c.b1.PopBack(); g != nil {
				delete(c.b1Idx, g.Key)
			}
			c.replaceLocked(false)
		} else {
			// B1 empty and T1 at capacity: evict T1's LRU outright.
			if n := c.t1.PopBack(); n != nil {
				delete(c.t1Idx, n.Key)
				if c.onEvict != nil {
					c.onEvict(n.Key, n.Val)
				}
			}
		}
	} else if c.t1.Len()+c.t2.Len()+c.b1.Len()+c.b2.Len() >= c.cap {
		if c.t1.Len()+c.t2.Len()+c.b1.Len()+c.b2.Len() >= 2*c.cap {
			if g := c.b2.PopBack(); g != nil {
				delete(c.b2Idx, g.Key)
			}
		}
		if c.t1.Len()+c.t2.Len() >= c.cap {
			c.replaceLocked(false)
		}
	}

	n := &list.Node[K, V]{Key: k, Val: v}
	c.t1.PushFront(n)
	c.t1Idx[k] = n
}

// Get returns the value for k. A T1 hit promotes the entry to T2; a T2 hit
// refreshes its recency. A ghost hit carries no value, so it adapts p and
// still reports a miss (the next Put for the key completes the re-admission).
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.t1Idx[k]; ok {
		c.promoteLocked(n)
		return n.Val, true
	}
	if n, ok := c.t2Idx[k]; ok {
		c.t2.MoveToFront(n)
		return n.Val, true
	}

	var zero V
	if _, ok := c.b1Idx[k]; ok {
		c.p = min(c.cap, c.p+adaptStep(c.b2.Len(), c.b1.Len()))
		return zero, false
	}
	if _, ok := c.b2Idx[k]; ok {
		c.p = max(0, c.p-adaptStep(c.b1.Len(), c.b2.Len()))
		return zero, false
	}
	return zero, false
}

// Contains reports residency (T1 or T2) without promoting. Ghost keys are
// not resident.
func (c *Cache[K, V]) Contains(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.t1Idx[k]; ok {
		return true
	}
	_, ok := c.t2Idx[k]
	return ok
}

// Remove deletes k entirely: a resident entry returns true; a ghost record
// is dropped silently and reported as absent.
func (c *Cache[K, V]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.t1Idx[k]; ok {
		c.t1.Remove(n)
		delete(c.t1Idx, k)
		return true
	}
	if n, ok := c.t2Idx[k]; ok {
		c.t2.Remove(n)
		delete(c.t2Idx, k)
		return true
	}
	if g, ok := c.b1Idx[k]; ok {
		c.b1.Remove(g)
		delete(c.b1Idx, k)
		return false
	}
	if g, ok := c.b2Idx[k]; ok {
		c.b2.Remove(g)
		delete(c.b2Idx, k)
	}
	return false
}

// Len returns the number of resident entries (T1 + T2; ghosts excluded).
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	n := c.t1.Len() + c.t2.Len()
	c.mu.Unlock()
	return n
}

// -------------------- internals (mu held) --------------------

// adaptStep is the p adjustment for a ghost hit: the other ghost list's
// size over this one's, at least 1.
func adaptStep(other, this int) int {
	if this <= 0 {
		return 1
	}
	d := other / this
	if d < 1 {
		d = 1
	}
	return d
}

// promoteLocked moves a T1 node to the MRU end of T2.
func (c *Cache[K, V]) promoteLocked(n *list.Node[K, V]) {
	c.t1.Remove(n)
	delete(c.t1Idx, n.Key)
	c.t2.PushFront(n)
	c.t2Idx[n.Key] = n
}

// admitT2Locked inserts a fresh node for a re-admitted ghost key at the MRU
// end of T2.
func (c *Cache[K, V]) admitT2Locked(k K, v V) {
	n := &list.Node[K, V]{Key: k, Val: v}
	c.t2.PushFront(n)
	c.t2Idx[k] = n
}

// replaceLocked is the REPLACE eviction primitive: demote the LRU of T1 to
// a B1 ghost when T1 exceeds its target p (or exactly meets it on a B2
// hit), otherwise demote the LRU of T2 to a B2 ghost. The demoted entry's
// value is discarded; only the key survives.
func (c *Cache[K, V]) replaceLocked(hitB2 bool) {
	if c.t1.Len() > 0 && (c.t1.Len() > c.p || (hitB2 && c.t1.Len() == c.p)) {
		c.demoteLocked(c.t1, c.t1Idx, c.b1, c.b1Idx)
		return
	}
	if c.t2.Len() > 0 {
		c.demoteLocked(c.t2, c.t2Idx, c.b2, c.b2Idx)
		return
	}
	if c.t1.Len() > 0 {
		c.demoteLocked(c.t1, c.t1Idx, c.b1, c.b1Idx)
	}
}

// demoteLocked moves the LRU node of a resident list to the MRU end of its
// ghost list, dropping the value.
func (c *Cache[K, V]) demoteLocked(t *list.List[K, V], tIdx map[K]*list.Node[K, V], b *list.List[K, V], bIdx map[K]*list.Node[K, V]) {
	n := t.PopBack()
	if n == nil {
		return
	}
	delete(tIdx, n.Key)
	if c.onEvict != nil {
		c.onEvict(n.Key, n.Val)
	}
	var zero V
	n.Val = zero
	b.PushFront(n)
	bIdx[n.Key] = n
}

// ---- policy.Factory ----

type arcFactory[K comparable, V any] struct{}

// Policy returns a policy.Factory producing per-shard ARC cores, each with
// its own adaptive target.
func Policy[K comparable, V any]() policy.Factory[K, V] { return arcFactory[K, V]{} }

func (arcFactory[K, V]) New(capacity int, onEvict func(K, V)) policy.Store[K, V] {
	if onEvict == nil {
		return New[K, V](capacity)
	}
	return New(capacity, WithOnEvict[K, V](onEvict))
}

var _ policy.Store[string, int] = (*Cache[string, int])(nil)
