// Package tzcache memoizes timezone lookups. time.LoadLocation parses the
// tzdata files on every call, and the goal and reminder sweeps resolve a
// zone per user record, so lookups are cached behind a small LRU.
//
// Get, Put and eviction are all O(1): a map for lookup plus a doubly
// linked list for recency order.
package tzcache

import (
	"sync"
	"time"
)

// entry is a doubly linked list node holding one resolved zone.
type entry struct {
	name string
	loc  *time.Location
	prev *entry
	next *entry
}

// Cache is a thread-safe LRU of parsed time.Locations.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*entry
	head     *entry // most recently used (sentinel)
	tail     *entry // least recently used (sentinel)
}

// New creates a cache with the given capacity.
// Panics if capacity < 1.
func New(capacity int) *Cache {
	if capacity < 1 {
		panic("tzcache: capacity must be >= 1")
	}

	head := &entry{}
	tail := &entry{}
	head.next = tail
	tail.prev = head

	return &Cache{
		capacity: capacity,
		items:    make(map[string]*entry, capacity),
		head:     head,
		tail:     tail,
	}
}

// Location resolves a zone name, serving repeats from the cache. Failed
// lookups are not cached; a bad name stays an error on every call.
func (c *Cache) Location(name string) (*time.Location, error) {
	c.mu.Lock()
	if e, ok := c.items[name]; ok {
		c.moveToFront(e)
		loc := e.loc
		c.mu.Unlock()
		return loc, nil
	}
	c.mu.Unlock()

	// Parse outside the lock; concurrent misses for the same name just
	// both parse and the second Put is a cheap update.
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[name]; ok {
		e.loc = loc
		c.moveToFront(e)
		return loc, nil
	}

	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.remove(victim)
		delete(c.items, victim.name)
	}

	e := &entry{name: name, loc: loc}
	c.items[name] = e
	c.pushFront(e)
	return loc, nil
}

// Len returns the current number of cached zones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

var defaultCache = New(128)

// Location resolves a zone name through a process-wide cache.
func Location(name string) (*time.Location, error) {
	return defaultCache.Location(name)
}

// --- internal linked list operations (caller must hold lock) ---

func (c *Cache) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

func (c *Cache) pushFront(e *entry) {
	e.next = c.head.next
	e.prev = c.head
	c.head.next.prev = e
	c.head.next = e
}

func (c *Cache) moveToFront(e *entry) {
	c.remove(e)
	c.pushFront(e)
}
