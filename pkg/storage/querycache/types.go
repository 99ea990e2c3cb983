// Package querycache implements the query result cache (C6): a simple
// LRU+TTL cache keyed by raw query shape, and an advanced
// dependency-tracked cache that invalidates by table rather than by
// time alone. Both satisfy the same QueryCache interface.
package querycache

import (
	"context"
	"time"
)

// QueryCache is the shared contract both cache implementations satisfy.
type QueryCache interface {
	// Get returns the cached value for key and whether it was a hit.
	// A hit whose entry has since been invalidated or expired must
	// behave as a miss.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores value under key.
	Set(ctx context.Context, key string, value interface{})

	// Stats returns an immutable snapshot of the cache's counters.
	Stats() Stats
}

// Stats is an immutable snapshot of a query cache's counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	Invalidations int64
	EffectiveSize int
}

// HitRate returns Hits / (Hits + Misses), or 0 if there have been no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// QueryShape is the key material for the Simple cache: a normalized
// query description hashed into a single cache key.
type QueryShape struct {
	QueryText string
	Domain    string
	TaskType  string
	Limit     int
}

// DefaultTTL is the Simple cache's uniform entry lifetime.
const DefaultTTL = 5 * time.Minute

// QueryClass discriminates the Advanced cache's per-class TTL table.
type QueryClass string

const (
	QueryClassStatistics QueryClass = "statistics"
	QueryClassSearch     QueryClass = "search"
	QueryClassEmbedding  QueryClass = "embedding"
)

// classTTLs holds the Advanced cache's per-class expiry, following
// SPEC_FULL.md §4.6's explicit prose defaults: statistics queries
// expire fast, search queries medium, embedding lookups slow.
var classTTLs = map[QueryClass]time.Duration{
	QueryClassStatistics: 30 * time.Second,
	QueryClassSearch:     2 * time.Minute,
	QueryClassEmbedding:  30 * time.Minute,
}

// TTLForClass returns the configured TTL for class, defaulting to the
// Simple cache's uniform TTL for an unrecognized class.
func TTLForClass(class QueryClass) time.Duration {
	if ttl, ok := classTTLs[class]; ok {
		return ttl
	}
	return DefaultTTL
}

// HotAccessThreshold is the access count at which the Advanced cache's
// entry qualifies as "hot" and becomes eligible for background refresh
// ahead of expiry.
const HotAccessThreshold = 5

// TableModified is an invalidation event naming the table a write
// touched, the kind of write, and how many rows it affected.
type TableModified struct {
	Table         string
	Op            string
	AffectedRows  int
}
