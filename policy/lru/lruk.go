package lru

import (
	"sync"

	"github.com/DestinyOfLove/KamaCache/internal/list"
	"github.com/DestinyOfLove/KamaCache/policy"
)

// histVal is the history payload: the last value written before admission
// (if any) alongside a flag telling whether one was recorded.
type histVal[V any] struct {
	v   V
	has bool
}

// KCache is the k-promotion LRU variant. Keys are admitted into the main
// LRU space only after k accesses; earlier accesses are counted in a
// bounded history that itself evicts LRU-style. A value written before
// admission is kept in the history and installed on promotion.
//
// The variant resists one-shot scans: a key touched once lands in the
// history, not in the main space, so it cannot displace hot entries.
type KCache[K comparable, V any] struct {
	mu sync.Mutex

	// main space, same shape as Cache.
	main *list.List[K, V]
	mIdx map[K]*list.Node[K, V]

	// pre-admission history; Node.Freq holds the access count.
	hist *list.List[K, histVal[V]]
	hIdx map[K]*list.Node[K, histVal[V]]

	cap     int
	histCap int
	k       uint32
	onEvict func(K, V)
}

// NewK constructs a k-promotion LRU with a main capacity, a history
// capacity, and an admission threshold k >= 1. k == 1 degenerates to plain
// LRU admission. Negative capacities or k < 1 panic.
func NewK[K comparable, V any](capacity, historyCapacity int, k int, opts ...KOption[K, V]) *KCache[K, V] {
	if capacity < 0 || historyCapacity < 0 {
		panic("lru: capacity must be >= 0")
	}
	if k < 1 {
		panic("lru: promotion threshold k must be >= 1")
	}
	c := &KCache[K, V]{
		main:    list.New[K, V](),
		mIdx:    make(map[K]*list.Node[K, V], capacity),
		hist:    list.New[K, histVal[V]](),
		hIdx:    make(map[K]*list.Node[K, histVal[V]], historyCapacity),
		cap:     capacity,
		histCap: historyCapacity,
		k:       uint32(k),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KOption configures a KCache.
type KOption[K comparable, V any] func(*KCache[K, V])

// WithKOnEvict registers an eviction callback for the main space.
func WithKOnEvict[K comparable, V any](fn func(K, V)) KOption[K, V] {
	return func(c *KCache[K, V]) { c.onEvict = fn }
}

// Put inserts or updates k→v. Resident keys behave exactly like LRU.
// Non-resident keys are recorded in the history; the value is copied into
// the main space only once the access count reaches the threshold.
func (c *KCache[K, V]) Put(k K, v V) {
	if c.cap == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.mIdx[k]; ok {
		n.Val = v
		c.main.MoveToFront(n)
		return
	}
	c.recordLocked(k, v)
}

// Add inserts k→v only if k is not resident in the main space. The write
// still counts toward admission like Put; it returns false on duplicates.
func (c *KCache[K, V]) Add(k K, v V) bool {
	if c.cap == 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.mIdx[k]; ok {
		return false
	}
	c.recordLocked(k, v)
	return true
}

// recordLocked notes a write for a non-resident key, promoting it once the
// access count reaches the threshold. Caller holds c.mu.
func (c *KCache[K, V]) recordLocked(k K, v V) {
	h := c.touchHistoryLocked(k)
	h.Val = histVal[V]{v: v, has: true}
	if h.Freq >= c.k {
		c.promoteLocked(k, h)
	}
}

// Get returns the value for k. Resident keys behave like LRU. A miss still
// counts toward admission; reaching the threshold with a recorded value
// promotes the entry and reports a hit.
func (c *KCache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.mIdx[k]; ok {
		c.main.MoveToFront(n)
		return n.Val, true
	}

	var zero V
	if c.cap == 0 {
		return zero, false
	}
	h := c.touchHistoryLocked(k)
	if h.Freq >= c.k && h.Val.has {
		v := h.Val.v
		c.promoteLocked(k, h)
		return v, true
	}
	return zero, false
}

// Contains reports residency in the main space only.
func (c *KCache[K, V]) Contains(k K) bool {
	c.mu.Lock()
	_, ok := c.mIdx[k]
	c.mu.Unlock()
	return ok
}

// Remove deletes k from the main space and drops any history record, so a
// removed key must re-earn admission.
func (c *KCache[K, V]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.hIdx[k]; ok {
		c.hist.Remove(h)
		delete(c.hIdx, k)
	}
	n, ok := c.mIdx[k]
	if !ok {
		return false
	}
	c.main.Remove(n)
	delete(c.mIdx, k)
	return true
}

// Len returns the number of resident entries (history records excluded).
func (c *KCache[K, V]) Len() int {
	c.mu.Lock()
	n := c.main.Len()
	c.mu.Unlock()
	return n
}

// touchHistoryLocked bumps the access count for a non-resident key,
// creating the record if needed and evicting the history LRU on overflow.
// Caller holds c.mu.
func (c *KCache[K, V]) touchHistoryLocked(k K) *list.Node[K, histVal[V]] {
	if h, ok := c.hIdx[k]; ok {
		h.Freq++
		c.hist.MoveToFront(h)
		return h
	}
	if c.histCap <= 0 {
		// History disabled: the count lives only for this call, so only
		// k == 1 can still admit.
		return &list.Node[K, histVal[V]]{Key: k, Freq: 1}
	}
	if c.hist.Len() >= c.histCap {
		if old := c.hist.PopBack(); old != nil {
			delete(c.hIdx, old.Key)
		}
	}
	h := &list.Node[K, histVal[V]]{Key: k, Freq: 1}
	c.hist.PushFront(h)
	c.hIdx[k] = h
	return h
}

// promoteLocked moves a qualified history record into the main space.
// Caller holds c.mu; h must carry a recorded value.
func (c *KCache[K, V]) promoteLocked(k K, h *list.Node[K, histVal[V]]) {
	if _, ok := c.hIdx[k]; ok {
		c.hist.Remove(h)
		delete(c.hIdx, k)
	}

	if c.main.Len() >= c.cap {
		if old := c.main.PopBack(); old != nil {
			delete(c.mIdx, old.Key)
			if c.onEvict != nil {
				c.onEvict(old.Key, old.Val)
			}
		}
	}
	n := &list.Node[K, V]{Key: k, Val: h.Val.v}
	c.main.PushFront(n)
	c.mIdx[k] = n
}

// ---- policy.Factory ----

type lrukFactory[K comparable, V any] struct {
	histCap int
	k       int
}

// PolicyK returns a policy.Factory producing per-shard k-promotion LRU
// cores. historyCapacity and k apply per shard.
func PolicyK[K comparable, V any](historyCapacity, k int) policy.Factory[K, V] {
	return lrukFactory[K, V]{histCap: historyCapacity, k: k}
}

func (f lrukFactory[K, V]) New(capacity int, onEvict func(K, V)) policy.Store[K, V] {
	if onEvict == nil {
		return NewK[K, V](capacity, f.histCap, f.k)
	}
	return NewK(capacity, f.histCap, f.k, WithKOnEvict[K, V](onEvict))
}

var _ policy.Store[string, int] = (*KCache[string, int])(nil)
