package sync

import (
	"time"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// ConflictResolution selects how a manual cache-recovery reconciliation
// picks a winner when the durable and cache copies of an entity differ.
// It has no bearing on ordinary write-through traffic, which never
// produces a conflict: the durable store is always written first and
// is always the source of truth for that single write.
type ConflictResolution int

const (
	// DurableWins always keeps the durable copy. The default.
	DurableWins ConflictResolution = iota
	// CacheWins always keeps the cache copy.
	CacheWins
	// MostRecent keeps whichever copy is newer by the entity's own
	// recency field.
	MostRecent
)

// ResolveEpisodeConflict picks durable or cache per policy. Under
// MostRecent, recency is end_time if present, else start_time.
func ResolveEpisodeConflict(policy ConflictResolution, durable, cache *episode.Episode) *episode.Episode {
	switch policy {
	case CacheWins:
		return cache
	case MostRecent:
		if episodeRecency(cache).After(episodeRecency(durable)) {
			return cache
		}
		return durable
	default:
		return durable
	}
}

func episodeRecency(ep *episode.Episode) time.Time {
	if ep.EndTime != nil {
		return *ep.EndTime
	}
	return ep.StartTime
}

// ResolvePatternConflict picks durable or cache per policy. Under
// MostRecent, recency is the pattern's success rate.
func ResolvePatternConflict(policy ConflictResolution, durable, cache *episode.Pattern) *episode.Pattern {
	switch policy {
	case CacheWins:
		return cache
	case MostRecent:
		if cache.Effectiveness.SuccessRate() > durable.Effectiveness.SuccessRate() {
			return cache
		}
		return durable
	default:
		return durable
	}
}

// ResolveHeuristicConflict picks durable or cache per policy. Under
// MostRecent, recency is updated_at.
func ResolveHeuristicConflict(policy ConflictResolution, durable, cache *episode.Heuristic) *episode.Heuristic {
	switch policy {
	case CacheWins:
		return cache
	case MostRecent:
		if cache.UpdatedAt.After(durable.UpdatedAt) {
			return cache
		}
		return durable
	default:
		return durable
	}
}
