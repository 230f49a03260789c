package cache

import (
	"container/list"
	"sync"
	"time"
)

// EvictReason says why an entry left the cache.
type EvictReason int

const (
	EvictExpired EvictReason = iota
	EvictCapacity
	EvictDeleted
)

func (r EvictReason) String() string {
	switch r {
	case EvictExpired:
		return "expired"
	case EvictCapacity:
		return "capacity"
	default:
		return "deleted"
	}
}

// LRUCache is a size-bounded cache whose entries expire after ttl without
// use. Every hit pushes the expiry forward.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
	onEvict func(key string, value T, reason EvictReason)
	now     func() time.Time
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

// NewLRUCache creates a cache holding at most maxSize entries.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// OnEvict registers fn to run, under the cache lock, whenever an entry is
// removed. fn must not call back into the cache.
func (c *LRUCache[T]) OnEvict(fn func(key string, value T, reason EvictReason)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get returns the live value for key and extends its expiry.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// GetOrCreate returns the live value for key, or stores the result of create.
// created reports whether create ran.
func (c *LRUCache[T]) GetOrCreate(key string, create func() T) (value T, created bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lookup(key); ok {
		return e.value, false
	}
	value = create()
	c.insert(key, value)
	return value, true
}

// Set stores value under key, replacing any previous value.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[T])
		e.value = value
		e.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}
	c.insert(key, value)
}

// Delete removes key from the cache.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem, EvictDeleted)
	}
}

// CleanExpired removes every expired entry and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	// Expired entries cluster at the back, but a Set on an old key can
	// reorder them, so walk the whole list.
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			c.remove(elem, EvictExpired)
			removed++
		}
		elem = prev
	}
	return removed
}

// Size returns the number of entries, expired ones included until cleaned.
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// lookup finds a live entry and refreshes it. Callers hold c.mu.
func (c *LRUCache[T]) lookup(key string) (*entry[T], bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry[T])
	now := c.now()
	if now.After(e.expiresAt) {
		c.remove(elem, EvictExpired)
		return nil, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.order.MoveToFront(elem)
	return e, true
}

// insert adds a new entry and evicts the least recently used one when full.
// Callers hold c.mu.
func (c *LRUCache[T]) insert(key string, value T) {
	c.items[key] = c.order.PushFront(&entry[T]{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
	if c.order.Len() > c.maxSize {
		c.remove(c.order.Back(), EvictCapacity)
	}
}

func (c *LRUCache[T]) remove(elem *list.Element, reason EvictReason) {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.order.Remove(elem)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value, reason)
	}
}
