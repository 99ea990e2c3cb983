// Package spatiotemporal implements the hierarchical spatiotemporal
// index: domain → task type → temporal cluster, enabling retrieval
// biased toward recent episodes without scanning the full store.
package spatiotemporal

import (
	"time"

	"github.com/google/uuid"
)

// Granularity is the temporal bucket width applied to a cluster,
// chosen by an episode's age at insertion time.
type Granularity int

const (
	GranularityWeekly Granularity = iota
	GranularityMonthly
	GranularityQuarterly
)

// FromAge selects the granularity for an episode with the given start
// time: Weekly for episodes under 30 days old, Monthly for [30, 180)
// days, Quarterly for 180 days or older.
func FromAge(timestamp time.Time) Granularity {
	age := time.Since(timestamp)
	switch {
	case age < 30*24*time.Hour:
		return GranularityWeekly
	case age < 180*24*time.Hour:
		return GranularityMonthly
	default:
		return GranularityQuarterly
	}
}

// Duration returns the nominal width of a cluster at this granularity.
// Weekly windows are exactly this wide; Monthly and Quarterly windows
// span one and three calendar months (see computeBounds).
func (g Granularity) Duration() time.Duration {
	switch g {
	case GranularityWeekly:
		return 7 * 24 * time.Hour
	case GranularityMonthly:
		return 30 * 24 * time.Hour
	default:
		return 90 * 24 * time.Hour
	}
}

// Cluster holds the episode ids whose start time falls within
// [StartTime, EndTime) at a given granularity.
type Cluster struct {
	StartTime   time.Time
	EndTime     time.Time
	EpisodeIDs  []uuid.UUID
	Granularity Granularity
}

// NewCluster builds an empty cluster covering the granularity-aligned
// window containing timestamp.
func NewCluster(timestamp time.Time, granularity Granularity) *Cluster {
	start, end := computeBounds(timestamp, granularity)
	return &Cluster{StartTime: start, EndTime: end, Granularity: granularity}
}

// computeBounds aligns timestamp to the start of its granularity
// window: the preceding Sunday for Weekly, the 1st of the month for
// Monthly, the 1st of the quarter's first month for Quarterly, all
// further truncated to midnight UTC. The window ends seven days, one
// calendar month, or three calendar months after that start.
func computeBounds(timestamp time.Time, granularity Granularity) (time.Time, time.Time) {
	duration := granularity.Duration()
	ts := timestamp.UTC()

	var start time.Time
	switch granularity {
	case GranularityWeekly:
		daysSinceSunday := int(ts.Weekday())
		start = ts.AddDate(0, 0, -daysSinceSunday)
	case GranularityMonthly:
		start = time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		quarterMonth := ((int(ts.Month()-1) / 3) * 3) + 1
		start = time.Date(ts.Year(), time.Month(quarterMonth), 1, 0, 0, 0, 0, time.UTC)
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	switch granularity {
	case GranularityMonthly:
		return start, start.AddDate(0, 1, 0)
	case GranularityQuarterly:
		return start, start.AddDate(0, 3, 0)
	}
	return start, start.Add(duration)
}

// ContainsTimestamp reports whether timestamp falls in [StartTime, EndTime).
func (c *Cluster) ContainsTimestamp(timestamp time.Time) bool {
	ts := timestamp.UTC()
	return !ts.Before(c.StartTime) && ts.Before(c.EndTime)
}

// AddEpisode adds id to the cluster if not already present.
func (c *Cluster) AddEpisode(id uuid.UUID) {
	for _, existing := range c.EpisodeIDs {
		if existing == id {
			return
		}
	}
	c.EpisodeIDs = append(c.EpisodeIDs, id)
}

// RemoveEpisode removes id from the cluster, reporting whether it was present.
func (c *Cluster) RemoveEpisode(id uuid.UUID) bool {
	for i, existing := range c.EpisodeIDs {
		if existing == id {
			c.EpisodeIDs = append(c.EpisodeIDs[:i], c.EpisodeIDs[i+1:]...)
			return true
		}
	}
	return false
}

// IsEmpty reports whether the cluster holds no episodes.
func (c *Cluster) IsEmpty() bool {
	return len(c.EpisodeIDs) == 0
}

// Size returns the number of episodes in the cluster.
func (c *Cluster) Size() int {
	return len(c.EpisodeIDs)
}
