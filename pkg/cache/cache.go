package cache

import (
	"container/list"
	"sync"
)

// LRU is a bounded map safe for concurrent use. When full, inserting a new
// key evicts the least recently used one.
type LRU[V any] struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // MRU at front, LRU at back
	maxItems int        // 0 = unlimited
}

type entry[V any] struct {
	key   string
	value V
}

func NewLRU[V any](maxItems int) *LRU[V] {
	if maxItems < 0 {
		maxItems = 0
	}
	return &LRU[V]{items: make(map[string]*list.Element), order: list.New(), maxItems: maxItems}
}

// Update runs fn on the current value of key while holding the lock, so a
// read-modify-write on one key never loses a concurrent update. fn returns
// the value to store and whether to keep the key at all.
func (c *LRU[V]) Update(key string, fn func(v V, ok bool) (V, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		cur V
		ok  bool
	)
	if el, found := c.items[key]; found {
		cur, ok = el.Value.(*entry[V]).value, true
	}
	next, keep := fn(cur, ok)
	if !keep {
		c.removeNoLock(key)
		return
	}
	c.setNoLock(key, next)
}

// Len returns the number of keys held.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// RemoveIf deletes every entry for which drop returns true and reports how
// many were removed.
func (c *LRU[V]) RemoveIf(drop func(key string, v V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, el := range c.items {
		if drop(k, el.Value.(*entry[V]).value) {
			c.removeNoLock(k)
			n++
		}
	}
	return n
}

// setNoLock inserts or replaces key; caller must hold c.mu.
func (c *LRU[V]) setNoLock(key string, v V) {
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = v
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: v})
	for c.maxItems > 0 && c.order.Len() > c.maxItems {
		c.evictLRUNoLock()
	}
}

// removeNoLock removes key from map/list; caller must hold c.mu.
func (c *LRU[V]) removeNoLock(key string) {
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// evictLRUNoLock removes one LRU entry; caller must hold c.mu.
func (c *LRU[V]) evictLRUNoLock() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.order.Remove(back)
	delete(c.items, back.Value.(*entry[V]).key)
}
