package spatiotemporal

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TaskTypeIndex holds the temporal clusters for one task type (or, for
// a domain's uncategorized bucket, for all episodes regardless of task
// type) within a single domain.
type TaskTypeIndex struct {
	Clusters []*Cluster
}

// NewTaskTypeIndex returns an empty task-type index.
func NewTaskTypeIndex() *TaskTypeIndex {
	return &TaskTypeIndex{}
}

// InsertEpisode buckets episodeID's start time into the matching
// cluster, creating one if needed, and keeps clusters sorted by start
// time descending (most recent first).
func (idx *TaskTypeIndex) InsertEpisode(episodeID uuid.UUID, startTime time.Time) {
	granularity := FromAge(startTime)

	for _, c := range idx.Clusters {
		if c.Granularity == granularity && c.ContainsTimestamp(startTime) {
			c.AddEpisode(episodeID)
			return
		}
	}

	newCluster := NewCluster(startTime, granularity)
	newCluster.AddEpisode(episodeID)
	idx.Clusters = append(idx.Clusters, newCluster)
	sort.Slice(idx.Clusters, func(i, j int) bool {
		return idx.Clusters[i].StartTime.After(idx.Clusters[j].StartTime)
	})
}

// RemoveEpisode removes episodeID from every cluster it appears in.
func (idx *TaskTypeIndex) RemoveEpisode(episodeID uuid.UUID) bool {
	removed := false
	for _, c := range idx.Clusters {
		if c.RemoveEpisode(episodeID) {
			removed = true
		}
	}
	return removed
}

// TotalEpisodes sums the size of every cluster.
func (idx *TaskTypeIndex) TotalEpisodes() int {
	total := 0
	for _, c := range idx.Clusters {
		total += c.Size()
	}
	return total
}

// GetEpisodesInRange returns the episode ids from every cluster whose
// window overlaps [start, end).
func (idx *TaskTypeIndex) GetEpisodesInRange(start, end time.Time) []uuid.UUID {
	var ids []uuid.UUID
	for _, c := range idx.Clusters {
		if c.EndTime.After(start) && c.StartTime.Before(end) {
			ids = append(ids, c.EpisodeIDs...)
		}
	}
	return ids
}

// GetRecentEpisodes returns up to limit episode ids, most recent
// clusters first.
func (idx *TaskTypeIndex) GetRecentEpisodes(limit int) []uuid.UUID {
	var ids []uuid.UUID
	for _, c := range idx.Clusters {
		ids = append(ids, c.EpisodeIDs...)
		if limit >= 0 && len(ids) >= limit {
			break
		}
	}
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// CleanupEmptyClusters drops clusters left with no episodes.
func (idx *TaskTypeIndex) CleanupEmptyClusters() {
	kept := idx.Clusters[:0]
	for _, c := range idx.Clusters {
		if !c.IsEmpty() {
			kept = append(kept, c)
		}
	}
	idx.Clusters = kept
}
