package spatiotemporal

import (
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// Index is the top-level spatiotemporal index: one DomainIndex per
// domain seen, giving domain → task type → temporal cluster
// three-level retrieval.
type Index struct {
	Domains       map[string]*DomainIndex
	TotalEpisodes int
	CreatedAt     time.Time
	LastModified  time.Time
}

// New returns an empty index.
func New() *Index {
	now := time.Now().UTC()
	return &Index{
		Domains:      make(map[string]*DomainIndex),
		CreatedAt:    now,
		LastModified: now,
	}
}

// Insert indexes ep under its context's domain.
func (idx *Index) Insert(ep *episode.Episode) {
	domain, ok := idx.Domains[ep.Context.Domain]
	if !ok {
		domain = NewDomainIndex(ep.Context.Domain)
		idx.Domains[ep.Context.Domain] = domain
	}
	domain.InsertEpisode(ep)
	idx.TotalEpisodes++
	idx.LastModified = time.Now().UTC()
}

// Remove removes episodeID from every domain it was indexed under.
func (idx *Index) Remove(episodeID uuid.UUID) bool {
	removed := false
	for _, domain := range idx.Domains {
		if domain.RemoveEpisode(episodeID) {
			removed = true
		}
	}
	if removed {
		if idx.TotalEpisodes > 0 {
			idx.TotalEpisodes--
		}
		idx.LastModified = time.Now().UTC()
	}
	return removed
}

// Query returns up to limit episode ids for domain, optionally
// narrowed to a task type and/or a start/end time range. When taskType
// is nil, the result comes from DomainIndex.GetRecentEpisodes and may
// report each episode twice (see its doc comment). When taskType is
// set, start/end default to the full epoch range and the result comes
// only from the categorized view.
func (idx *Index) Query(domain string, taskType *episode.TaskType, start, end *time.Time, limit int) []uuid.UUID {
	domainIdx, ok := idx.Domains[domain]
	if !ok {
		return nil
	}

	var ids []uuid.UUID
	if taskType != nil {
		s := time.Unix(0, 0).UTC()
		if start != nil {
			s = *start
		}
		e := time.Unix(253402300799, 999999999).UTC()
		if end != nil {
			e = *end
		}
		ids = domainIdx.GetEpisodesByTaskTypeAndTime(*taskType, s, e)
	} else {
		ids = domainIdx.GetRecentEpisodes(limit)
	}

	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// GetDomainsInTimeRange returns every domain with at least one episode
// whose cluster overlaps [start, end) in any task-type bucket.
func (idx *Index) GetDomainsInTimeRange(start, end time.Time) []string {
	var domains []string
	for name, domain := range idx.Domains {
		found := false
		for _, tt := range domain.TaskTypeIndices {
			if len(tt.GetEpisodesInRange(start, end)) > 0 {
				found = true
				break
			}
		}
		if found {
			domains = append(domains, name)
		}
	}
	return domains
}

// GetDomainCounts returns the total episode count per domain.
func (idx *Index) GetDomainCounts() map[string]int {
	counts := make(map[string]int, len(idx.Domains))
	for name, domain := range idx.Domains {
		counts[name] = domain.TotalEpisodes
	}
	return counts
}

// GetTemporalDistribution returns, for a domain, the number of
// episodes clustered at each granularity across every task-type bucket.
func (idx *Index) GetTemporalDistribution(domain string) map[Granularity]int {
	distribution := make(map[Granularity]int)
	domainIdx, ok := idx.Domains[domain]
	if !ok {
		return distribution
	}
	for _, tt := range domainIdx.TaskTypeIndices {
		for _, c := range tt.Clusters {
			distribution[c.Granularity] += c.Size()
		}
	}
	return distribution
}

// Clear removes every indexed domain.
func (idx *Index) Clear() {
	idx.Domains = make(map[string]*DomainIndex)
	idx.TotalEpisodes = 0
	idx.LastModified = time.Now().UTC()
}

// NumDomains returns the number of distinct domains indexed.
func (idx *Index) NumDomains() int {
	return len(idx.Domains)
}
