package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jordigilh/kubernaut/pkg/metrics"
)

var tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)

// ExtractTableDependencies scans a normalized SQL string for every
// table referenced by a FROM or JOIN clause.
func ExtractTableDependencies(normalizedSQL string) []string {
	matches := tableRefPattern.FindAllStringSubmatch(normalizedSQL, -1)
	seen := make(map[string]struct{}, len(matches))
	var tables []string
	for _, m := range matches {
		table := strings.ToLower(m[1])
		if _, ok := seen[table]; ok {
			continue
		}
		seen[table] = struct{}{}
		tables = append(tables, table)
	}
	return tables
}

// HashQuery derives the Advanced cache's key from normalized SQL, a
// parameter hash list, and the query class.
func HashQuery(normalizedSQL string, paramHashes []string, class QueryClass) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", normalizedSQL, strings.Join(paramHashes, ","), class)
	return hex.EncodeToString(h.Sum(nil))
}

type advancedEntry struct {
	key          string
	value        interface{}
	class        QueryClass
	dependencies []string
	expiresAt    time.Time
	accessCount  int
	refreshing   bool
}

// RefreshFunc re-executes the query that produced a cache entry,
// returning its fresh value.
type RefreshFunc func(ctx context.Context) (interface{}, error)

// Advanced is the dependency-tracked query cache: entries are evicted
// not only by TTL but by table-level invalidation events, and a "hot"
// entry nearing expiry can be refreshed in the background before it
// goes stale.
type Advanced struct {
	name string

	mu          sync.Mutex
	entries     map[string]*advancedEntry
	byTable     map[string]map[string]struct{}
	refreshFlight singleflight.Group

	hits, misses, evictions, invalidations int64
}

var _ QueryCache = (*Advanced)(nil)

// NewAdvanced returns an empty Advanced cache named name (used only for
// metrics labeling).
func NewAdvanced(name string) *Advanced {
	return &Advanced{
		name:    name,
		entries: make(map[string]*advancedEntry),
		byTable: make(map[string]map[string]struct{}),
	}
}

// Get implements QueryCache.
func (c *Advanced) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		metrics.RecordCacheMiss(c.name)
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(key)
		c.misses++
		metrics.RecordCacheMiss(c.name)
		return nil, false
	}

	entry.accessCount++
	c.hits++
	metrics.RecordCacheHit(c.name)
	return entry.value, true
}

// SetClassified stores value under key with the dependency and class
// metadata needed for table-scoped invalidation and per-class TTL.
func (c *Advanced) SetClassified(key string, value interface{}, class QueryClass, dependencies []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
	}

	entry := &advancedEntry{
		key:          key,
		value:        value,
		class:        class,
		dependencies: dependencies,
		expiresAt:    time.Now().Add(TTLForClass(class)),
	}
	c.entries[key] = entry
	for _, table := range dependencies {
		if c.byTable[table] == nil {
			c.byTable[table] = make(map[string]struct{})
		}
		c.byTable[table][key] = struct{}{}
	}
}

// Set implements QueryCache with no dependency tracking; callers that
// need invalidation should use SetClassified instead.
func (c *Advanced) Set(ctx context.Context, key string, value interface{}) {
	c.SetClassified(key, value, QueryClassSearch, nil)
}

func (c *Advanced) removeLocked(key string) {
	entry, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, table := range entry.dependencies {
		delete(c.byTable[table], key)
	}
}

// Invalidate walks the table dependency index for event.Table and
// evicts every entry that reads from it.
func (c *Advanced) Invalidate(event TableModified) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byTable[event.Table]
	for key := range keys {
		c.removeLocked(key)
		c.invalidations++
	}
}

// RefreshHotEntries walks every entry at or above HotAccessThreshold
// access count whose TTL is within refreshWindow of expiring, and
// re-executes refresh(key) for each via a singleflight group so
// concurrent refresh attempts on the same key collapse into one call.
func (c *Advanced) RefreshHotEntries(ctx context.Context, refreshWindow time.Duration, refresh func(key string) RefreshFunc) {
	c.mu.Lock()
	var candidates []string
	now := time.Now()
	for key, entry := range c.entries {
		if entry.accessCount >= HotAccessThreshold && entry.expiresAt.Sub(now) <= refreshWindow && !entry.refreshing {
			entry.refreshing = true
			candidates = append(candidates, key)
		}
	}
	c.mu.Unlock()

	for _, key := range candidates {
		key := key
		go func() {
			_, _, _ = c.refreshFlight.Do(key, func() (interface{}, error) {
				fn := refresh(key)
				value, err := fn(ctx)

				c.mu.Lock()
				defer c.mu.Unlock()
				entry, ok := c.entries[key]
				if !ok {
					return nil, err
				}
				entry.refreshing = false
				if err == nil {
					entry.value = value
					entry.expiresAt = time.Now().Add(TTLForClass(entry.class))
				}
				return value, err
			})
		}()
	}
}

// Stats implements QueryCache.
func (c *Advanced) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Invalidations: c.invalidations,
		EffectiveSize: len(c.entries),
	}
}
