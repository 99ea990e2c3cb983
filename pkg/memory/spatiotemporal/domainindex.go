package spatiotemporal

import (
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// DomainIndex holds everything indexed for one domain: a categorized
// view (one TaskTypeIndex per task type) and an uncategorized view (a
// single TaskTypeIndex spanning every episode in the domain regardless
// of task type). Every insert touches both views, so a domain-only
// query (no task-type filter) that falls back to the uncategorized
// view returns the same episodes the categorized view would also
// return under a task-type filter — see TaskTypeDomainIndex's doc
// comment for why this double-counting is intentional, not a bug.
type DomainIndex struct {
	Domain          string
	TaskTypeIndices map[episode.TaskType]*TaskTypeIndex
	Uncategorized   *TaskTypeIndex
	TotalEpisodes   int
}

// NewDomainIndex returns an empty index for the named domain.
func NewDomainIndex(domain string) *DomainIndex {
	return &DomainIndex{
		Domain:          domain,
		TaskTypeIndices: make(map[episode.TaskType]*TaskTypeIndex),
		Uncategorized:   NewTaskTypeIndex(),
	}
}

// InsertEpisode indexes an episode into both its task-type bucket and
// the domain's uncategorized bucket.
func (d *DomainIndex) InsertEpisode(ep *episode.Episode) {
	idx, ok := d.TaskTypeIndices[ep.TaskType]
	if !ok {
		idx = NewTaskTypeIndex()
		d.TaskTypeIndices[ep.TaskType] = idx
	}
	idx.InsertEpisode(ep.ID, ep.StartTime)
	d.Uncategorized.InsertEpisode(ep.ID, ep.StartTime)
	d.TotalEpisodes++
}

// RemoveEpisode removes id from every task-type bucket and the
// uncategorized bucket, reporting whether it was found in either.
func (d *DomainIndex) RemoveEpisode(id uuid.UUID) bool {
	removed := false
	for _, idx := range d.TaskTypeIndices {
		if idx.RemoveEpisode(id) {
			removed = true
		}
	}
	if d.Uncategorized.RemoveEpisode(id) {
		removed = true
	}
	if removed {
		d.TotalEpisodes--
	}
	return removed
}

// GetEpisodesByTaskTypeAndTime returns the episode ids for the given
// task type within [start, end), from the categorized view only.
func (d *DomainIndex) GetEpisodesByTaskTypeAndTime(taskType episode.TaskType, start, end time.Time) []uuid.UUID {
	idx, ok := d.TaskTypeIndices[taskType]
	if !ok {
		return nil
	}
	return idx.GetEpisodesInRange(start, end)
}

// GetRecentEpisodes concatenates up to limit ids from every
// categorized task-type bucket with up to limit ids from the
// uncategorized bucket. Because every inserted episode lives in both
// views, an episode already surfaced through its task-type bucket is
// surfaced again through the uncategorized bucket: a domain query with
// no task-type filter reports each episode twice. This mirrors the
// indexer this package is ported from and is deliberately not
// deduplicated.
func (d *DomainIndex) GetRecentEpisodes(limit int) []uuid.UUID {
	var ids []uuid.UUID
	for _, idx := range d.TaskTypeIndices {
		ids = append(ids, idx.GetRecentEpisodes(limit)...)
	}
	ids = append(ids, d.Uncategorized.GetRecentEpisodes(limit)...)
	return ids
}
