package cache

import "fmt"

// initialArenaSize bounds the up-front allocation for very large caches. The
// arena grows on demand past this size.
const initialArenaSize = 1024

// Cache is a fully associative, capacity-bounded key/value table with
// least-recently-used replacement.
//
// Entries live in an arena owned by the cache and are chained from oldest to
// newest through arena indices. A key index gives constant-time lookup; the
// recency list alone decides ordering and eviction. A Cache is not safe for
// concurrent use.
type Cache struct {
	capacity int
	count    int

	// Arena indices of the least and most recently used entries.
	oldest int
	newest int

	entries []Entry
	free    []int
	index   map[uint64]int

	onEvict   func(key, value uint64)
	stats     Statistics
	destroyed bool
}

var _ Table = (*Cache)(nil)

// New creates an empty cache that holds at most capacity entries.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	c := &Cache{capacity: capacity}
	c.init()

	return c, nil
}

func (c *Cache) init() {
	size := min(c.capacity+1, initialArenaSize)

	c.count = 0
	c.oldest = nilSlot
	c.newest = nilSlot
	c.entries = make([]Entry, 0, size)
	c.free = nil
	c.index = make(map[uint64]int, size)
}

func (c *Cache) mustBeLive() {
	if c.destroyed {
		panic("cache: use of destroyed Cache")
	}
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Len returns the number of entries currently stored.
func (c *Cache) Len() int {
	return c.count
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// OnEvict registers fn to be called with the key and value of every entry
// removed by eviction. Passing nil removes the handler.
func (c *Cache) OnEvict(fn func(key, value uint64)) {
	c.onEvict = fn
}

// Find looks up key. On a hit the entry becomes the most recently used one.
// On a miss it returns nil and leaves the cache untouched.
func (c *Cache) Find(key uint64) *Entry {
	c.mustBeLive()
	c.stats.Lookups++

	slot, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		return nil
	}

	c.stats.Hits++
	c.moveToNewest(slot)

	return &c.entries[slot]
}

// Peek looks up key without changing recency order or statistics.
func (c *Cache) Peek(key uint64) *Entry {
	c.mustBeLive()

	slot, ok := c.index[key]
	if !ok {
		return nil
	}

	return &c.entries[slot]
}

// InsertOrUpdate stores value under key and makes that entry the most
// recently used one. An existing entry is updated in place. A new entry that
// pushes the cache past its capacity evicts exactly one entry, the least
// recently used.
func (c *Cache) InsertOrUpdate(key, value uint64) *Entry {
	c.mustBeLive()

	if slot, ok := c.index[key]; ok {
		c.stats.Updates++
		c.entries[slot].Value = value
		c.moveToNewest(slot)
		return &c.entries[slot]
	}

	c.stats.Inserts++
	slot := c.allocate(key, value)
	c.index[key] = slot
	c.linkNewest(slot)
	c.count++

	// Insertion is one at a time, so the overflow is at most one entry.
	if c.count > c.capacity {
		c.evictOldest()
	}

	return &c.entries[c.newest]
}

// Oldest returns the least recently used entry, or nil if the cache is empty.
func (c *Cache) Oldest() *Entry {
	c.mustBeLive()
	if c.oldest == nilSlot {
		return nil
	}
	return &c.entries[c.oldest]
}

// Newest returns the most recently used entry, or nil if the cache is empty.
func (c *Cache) Newest() *Entry {
	c.mustBeLive()
	if c.newest == nilSlot {
		return nil
	}
	return &c.entries[c.newest]
}

// Range calls fn for each entry from the oldest to the newest, stopping early
// if fn returns false. fn must not modify the cache.
func (c *Cache) Range(fn func(key, value uint64) bool) {
	c.mustBeLive()

	for slot := c.oldest; slot != nilSlot; slot = c.entries[slot].newer {
		e := &c.entries[slot]
		if !fn(e.key, e.Value) {
			return
		}
	}
}

// Reset drops every entry. Capacity and statistics are kept.
func (c *Cache) Reset() {
	c.mustBeLive()
	c.init()
}

// Destroy releases every entry and the arena. It is safe to call on an empty
// or already destroyed cache; any other use afterwards panics.
func (c *Cache) Destroy() {
	c.count = 0
	c.oldest = nilSlot
	c.newest = nilSlot
	c.entries = nil
	c.free = nil
	c.index = nil
	c.onEvict = nil
	c.destroyed = true
}

// allocate places a detached entry in a free arena slot.
func (c *Cache) allocate(key, value uint64) int {
	e := Entry{key: key, Value: value, older: nilSlot, newer: nilSlot}

	if n := len(c.free); n > 0 {
		slot := c.free[n-1]
		c.free = c.free[:n-1]
		c.entries[slot] = e
		return slot
	}

	c.entries = append(c.entries, e)
	return len(c.entries) - 1
}

// linkNewest appends a detached slot after the current newest entry.
func (c *Cache) linkNewest(slot int) {
	e := &c.entries[slot]
	e.older = c.newest
	e.newer = nilSlot

	if c.newest == nilSlot {
		c.oldest = slot
	} else {
		c.entries[c.newest].newer = slot
	}

	c.newest = slot
}

// moveToNewest splices slot out of the recency list and re-appends it at the
// newest end. It runs in constant time.
func (c *Cache) moveToNewest(slot int) {
	if slot == c.newest {
		return
	}

	// slot is not the newest, so it always has a newer neighbor.
	e := &c.entries[slot]
	if slot == c.oldest {
		c.oldest = e.newer
		c.entries[e.newer].older = nilSlot
	} else {
		c.entries[e.older].newer = e.newer
		c.entries[e.newer].older = e.older
	}

	c.linkNewest(slot)
}

// evictOldest removes the least recently used entry and recycles its slot.
func (c *Cache) evictOldest() {
	slot := c.oldest
	victim := c.entries[slot]

	c.oldest = victim.newer
	if c.oldest == nilSlot {
		c.newest = nilSlot
	} else {
		c.entries[c.oldest].older = nilSlot
	}

	delete(c.index, victim.key)
	c.entries[slot] = Entry{older: nilSlot, newer: nilSlot}
	c.free = append(c.free, slot)
	c.count--
	c.stats.Evictions++

	if c.onEvict != nil {
		c.onEvict(victim.key, victim.Value)
	}
}
