package cache

import (
	"strings"
	"sync"
	"time"
)

type entry[T any] struct {
	key        string
	value      T
	expires    time.Time
	prev, next *entry[T]
}

// LRUCache bounds entries by count and by age. The list runs from most to
// least recently used around a sentinel node.
type LRUCache[T any] struct {
	mu    sync.Mutex
	limit int
	ttl   time.Duration
	now   func() time.Time
	index map[string]*entry[T]
	root  entry[T]
}

var _ Cache[int] = (*LRUCache[int])(nil)

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	limit := max(maxSize, 1)
	c := &LRUCache[T]{
		limit: limit,
		ttl:   ttl,
		now:   time.Now,
		index: make(map[string]*entry[T], limit),
	}
	c.root.next, c.root.prev = &c.root, &c.root
	return c
}

func (c *LRUCache[T]) unlink(e *entry[T]) {
	e.prev.next, e.next.prev = e.next, e.prev
	e.prev, e.next = nil, nil
}

func (c *LRUCache[T]) pushFront(e *entry[T]) {
	e.prev, e.next = &c.root, c.root.next
	c.root.next.prev = e
	c.root.next = e
}

func (c *LRUCache[T]) drop(e *entry[T]) {
	c.unlink(e)
	delete(c.index, e.key)
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	if !c.now().Before(e.expires) {
		c.drop(e)
		var zero T
		return zero, false
	}
	c.unlink(e)
	c.pushFront(e)
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if e, ok := c.index[key]; ok {
		e.value, e.expires = value, expires
		c.unlink(e)
		c.pushFront(e)
		return
	}
	e := &entry[T]{key: key, value: value, expires: expires}
	c.index[key] = e
	c.pushFront(e)
	for len(c.index) > c.limit {
		c.drop(c.root.prev)
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.index[key]; ok {
		c.drop(e)
	}
}

func (c *LRUCache[T]) DeletePrefix(prefix string) int {
	return c.sweep(func(e *entry[T]) bool { return strings.HasPrefix(e.key, prefix) })
}

// CleanExpired drops entries past their TTL and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	now := c.now()
	return c.sweep(func(e *entry[T]) bool { return !now.Before(e.expires) })
}

func (c *LRUCache[T]) sweep(match func(*entry[T]) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for e := c.root.next; e != &c.root; {
		next := e.next
		if match(e) {
			c.drop(e)
			n++
		}
		e = next
	}
	return n
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}
