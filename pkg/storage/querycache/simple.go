package querycache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jordigilh/kubernaut/pkg/metrics"
)

// HashShape derives the Simple cache's key: a SHA-256 hash of the
// query's normalized shape.
func HashShape(shape QueryShape) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d", shape.QueryText, shape.Domain, shape.TaskType, shape.Limit)
	return hex.EncodeToString(h.Sum(nil))
}

type simpleEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
	domain    string
}

// Simple is an LRU-evicted, uniformly-TTL'd query cache with lazy
// domain-scoped invalidation: InvalidateDomain marks keys invalid
// without touching the LRU list; a Get against an invalidated key
// counts as a miss and evicts it physically on next touch.
type Simple struct {
	name     string
	capacity int
	ttl      time.Duration

	mu           sync.Mutex
	ll           *list.List
	items        map[string]*list.Element
	byDomain     map[string]map[string]struct{}
	invalidated  map[string]struct{}

	hits, misses, evictions, invalidations int64
}

var _ QueryCache = (*Simple)(nil)

// NewSimple returns a Simple cache named name (used only for metrics
// labeling), capped at capacity entries with the given uniform TTL.
func NewSimple(name string, capacity int, ttl time.Duration) *Simple {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Simple{
		name:        name,
		capacity:    capacity,
		ttl:         ttl,
		ll:          list.New(),
		items:       make(map[string]*list.Element),
		byDomain:    make(map[string]map[string]struct{}),
		invalidated: make(map[string]struct{}),
	}
}

// Get implements QueryCache.
func (c *Simple) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		metrics.RecordCacheMiss(c.name)
		return nil, false
	}
	entry := el.Value.(*simpleEntry)

	if _, invalid := c.invalidated[key]; invalid || time.Now().After(entry.expiresAt) {
		c.removeLocked(el)
		c.misses++
		metrics.RecordCacheMiss(c.name)
		return nil, false
	}

	c.ll.MoveToFront(el)
	c.hits++
	metrics.RecordCacheHit(c.name)
	return entry.value, true
}

// SetWithDomain stores value under key, TTL'd from now, tracked against
// domain for later InvalidateDomain calls. domain may be empty if the
// query is not domain-scoped.
func (c *Simple) SetWithDomain(ctx context.Context, key, domain string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
	delete(c.invalidated, key)

	entry := &simpleEntry{key: key, value: value, expiresAt: time.Now().Add(c.ttl), domain: domain}
	el := c.ll.PushFront(entry)
	c.items[key] = el

	if domain != "" {
		if c.byDomain[domain] == nil {
			c.byDomain[domain] = make(map[string]struct{})
		}
		c.byDomain[domain][key] = struct{}{}
	}

	if c.capacity > 0 && c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.removeLocked(oldest)
			c.evictions++
		}
	}
}

// Set implements QueryCache with no domain scoping.
func (c *Simple) Set(ctx context.Context, key string, value interface{}) {
	c.SetWithDomain(ctx, key, "", value)
}

func (c *Simple) removeLocked(el *list.Element) {
	entry := el.Value.(*simpleEntry)
	c.ll.Remove(el)
	delete(c.items, entry.key)
	delete(c.invalidated, entry.key)
	if entry.domain != "" {
		delete(c.byDomain[entry.domain], entry.key)
	}
}

// InvalidateDomain marks every key associated with domain as
// invalidated. The entries remain physically present (and count toward
// the cache's size) until their next Get or an LRU eviction reaps them.
func (c *Simple) InvalidateDomain(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byDomain[domain]
	for key := range keys {
		c.invalidated[key] = struct{}{}
		c.invalidations++
	}
}

// Stats implements QueryCache.
func (c *Simple) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Invalidations: c.invalidations,
		EffectiveSize: c.ll.Len() - len(c.invalidated),
	}
}
