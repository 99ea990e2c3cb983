// Package prepared implements the per-connection prepared-statement LRU
// (C5): a classic container/list + map LRU keyed by (connection id, SQL
// text), with Evict to drop one connection's entries wholesale.
package prepared

import (
	"container/list"
	"sync"
	"time"
)

// Handle is an opaque prepared-statement handle. The cache does not
// interpret it; callers supply and retrieve whatever their driver
// returns from Prepare.
type Handle interface{}

type entryKey struct {
	connID uint64
	sql    string
}

type entry struct {
	key     entryKey
	handle  Handle
}

// Stats is an immutable snapshot of the cache's hit/miss counters.
type Stats struct {
	Hits              int64
	Misses            int64
	TotalPrepareTime  time.Duration
	PrepareCount      int64
}

// AvgPrepareTime returns the mean time spent preparing a statement
// (only counted on misses where the caller reports a duration via Put).
func (s Stats) AvgPrepareTime() time.Duration {
	if s.PrepareCount == 0 {
		return 0
	}
	return s.TotalPrepareTime / time.Duration(s.PrepareCount)
}

// Cache is a size-capped LRU of prepared statement handles, shared
// across every connection but keyed per-connection so a per-connection
// eviction (Evict) never disturbs another connection's entries.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[entryKey]*list.Element

	hits, misses int64
	totalPrepare time.Duration
	prepareCount int64
}

// New returns an LRU capped at capacity entries per connection.
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[entryKey]*list.Element),
	}
}

// Get returns the cached handle for (connID, sql), reporting a hit or
// miss. SQL text is used verbatim; no normalization is applied.
func (c *Cache) Get(connID uint64, sql string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey{connID: connID, sql: sql}
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return el.Value.(*entry).handle, true
}

// Put inserts handle for (connID, sql), recording prepareDuration
// toward the average-preparation-time stat, and evicts connID's
// least-recently-used entry once that connection holds more than
// capacity entries.
func (c *Cache) Put(connID uint64, sql string, handle Handle, prepareDuration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey{connID: connID, sql: sql}
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*entry).handle = handle
		return
	}

	el := c.ll.PushFront(&entry{key: key, handle: handle})
	c.items[key] = el
	c.totalPrepare += prepareDuration
	c.prepareCount++

	if c.capacity > 0 {
		count := 0
		var oldest *list.Element
		for e := c.ll.Front(); e != nil; e = e.Next() {
			if e.Value.(*entry).key.connID == connID {
				count++
				oldest = e
			}
		}
		if count > c.capacity {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

func (c *Cache) evictOldest() {
	oldest := c.ll.Back()
	if oldest == nil {
		return
	}
	c.ll.Remove(oldest)
	delete(c.items, oldest.Value.(*entry).key)
}

// Evict drops every entry belonging to connID and returns how many it
// removed. The connection pool (C4) does not call it when it closes a
// connection; the pool's only hook, OnRelease, runs on every release.
func (c *Cache) Evict(connID uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for el := c.ll.Front(); el != nil; el = el.Next() {
		if el.Value.(*entry).key.connID == connID {
			toRemove = append(toRemove, el)
		}
	}
	for _, el := range toRemove {
		c.ll.Remove(el)
		delete(c.items, el.Value.(*entry).key)
	}
	return len(toRemove)
}

// Stats returns an immutable snapshot of the cache's counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:             c.hits,
		Misses:           c.misses,
		TotalPrepareTime: c.totalPrepare,
		PrepareCount:     c.prepareCount,
	}
}

// Len returns the total number of cached entries across every connection.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
