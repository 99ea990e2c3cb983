package scoring

import (
	"math"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// ClusterConfig controls k-means episode clustering. NumClusters of 0
// auto-selects k = ceil(sqrt(n/2)).
type ClusterConfig struct {
	NumClusters   int
	MaxIterations int
}

// DefaultClusterConfig auto-selects k and iterates at most 10 times.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{NumClusters: 0, MaxIterations: 10}
}

// centroid summarizes one cluster: a representative context plus the
// two scalar features used by the distance function.
type centroid struct {
	context    episode.TaskContext
	avgSteps   float64
	hasOutcome bool
}

// Cluster is a non-empty group of episodes sharing a centroid.
type Cluster struct {
	Episodes []*episode.Episode
	Centroid centroid
}

// ClusterEpisodes groups episodes by k-means using the composite
// distance 0.5*context + 0.3*normalized-step-count + 0.2*outcome
// indicator. k is cfg.NumClusters, or ceil(sqrt(n/2)) when unset.
// Iteration stops when no centroid changes under centroidsEqual's
// tolerance or after cfg.MaxIterations rounds; episode assignments are
// not compared between rounds, so an episode may still move cluster in
// the final assignment. Empty clusters are dropped from the result.
func ClusterEpisodes(episodes []*episode.Episode, cfg ClusterConfig) []Cluster {
	if len(episodes) == 0 {
		return nil
	}

	k := cfg.NumClusters
	if k <= 0 {
		k = int(math.Ceil(math.Sqrt(float64(len(episodes)) / 2)))
	}
	if k < 1 {
		k = 1
	}
	if k > len(episodes) {
		k = len(episodes)
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 10
	}

	centroids := initializeCentroids(episodes, k)

	for iter := 0; iter < maxIter; iter++ {
		assignments := make([][]*episode.Episode, k)
		for _, ep := range episodes {
			nearest := nearestCentroid(ep, centroids)
			assignments[nearest] = append(assignments[nearest], ep)
		}

		changed := false
		for i := range centroids {
			if len(assignments[i]) == 0 {
				continue
			}
			next := calculateCentroid(assignments[i])
			if !centroidsEqual(centroids[i], next) {
				centroids[i] = next
				changed = true
			}
		}
		if !changed {
			assignments = finalAssign(episodes, centroids)
			return buildClusters(assignments, centroids)
		}
	}

	assignments := finalAssign(episodes, centroids)
	return buildClusters(assignments, centroids)
}

func finalAssign(episodes []*episode.Episode, centroids []centroid) [][]*episode.Episode {
	assignments := make([][]*episode.Episode, len(centroids))
	for _, ep := range episodes {
		nearest := nearestCentroid(ep, centroids)
		assignments[nearest] = append(assignments[nearest], ep)
	}
	return assignments
}

func buildClusters(assignments [][]*episode.Episode, centroids []centroid) []Cluster {
	clusters := make([]Cluster, 0, len(assignments))
	for i, eps := range assignments {
		if len(eps) == 0 {
			continue
		}
		clusters = append(clusters, Cluster{Episodes: eps, Centroid: centroids[i]})
	}
	return clusters
}

// initializeCentroids seeds k centroids from evenly spaced episodes,
// matching the original implementation's deterministic seeding (no
// randomness, so results are reproducible across runs).
func initializeCentroids(episodes []*episode.Episode, k int) []centroid {
	centroids := make([]centroid, 0, k)
	step := len(episodes) / k
	if step == 0 {
		step = 1
	}
	for i := 0; i < k; i++ {
		idx := i * step
		if idx >= len(episodes) {
			idx = len(episodes) - 1
		}
		centroids = append(centroids, centroidFromEpisode(episodes[idx]))
	}
	return centroids
}

func centroidFromEpisode(ep *episode.Episode) centroid {
	return centroid{
		context:    ep.Context,
		avgSteps:   float64(len(ep.Steps)),
		hasOutcome: ep.Outcome != nil,
	}
}

func nearestCentroid(ep *episode.Episode, centroids []centroid) int {
	nearest := 0
	minDist := math.MaxFloat64
	for i, c := range centroids {
		d := episodeDistance(ep, c)
		if d < minDist {
			minDist = d
			nearest = i
		}
	}
	return nearest
}

func episodeDistance(ep *episode.Episode, c centroid) float64 {
	contextDist := 1 - contextSimilarity(ep.Context, c.context)

	denom := c.avgSteps
	if denom < 1 {
		denom = 1
	}
	stepsDist := math.Abs(float64(len(ep.Steps))-c.avgSteps) / denom

	outcomeDist := 0.0
	if (ep.Outcome != nil) != c.hasOutcome {
		outcomeDist = 1.0
	}

	return contextDist*0.5 + stepsDist*0.3 + outcomeDist*0.2
}

// contextSimilarity is 1 minus the original's context_distance: domain
// mismatch costs 0.4, language mismatch costs 0.3, and tag dissimilarity
// (1 - Jaccard) costs the remaining 0.3.
func contextSimilarity(a, b episode.TaskContext) float64 {
	distance := 0.0
	if a.Domain != b.Domain {
		distance += 0.4
	}
	if a.Language != b.Language {
		distance += 0.3
	}
	distance += (1 - tagJaccard(a.Tags, b.Tags)) * 0.3
	return 1 - distance
}

func tagJaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	set := make(map[string]struct{}, len(a)+len(b))
	inA := make(map[string]struct{}, len(a))
	for _, t := range a {
		inA[t] = struct{}{}
		set[t] = struct{}{}
	}
	common := 0
	for _, t := range b {
		set[t] = struct{}{}
		if _, ok := inA[t]; ok {
			common++
		}
	}
	if len(set) == 0 {
		return 1.0
	}
	return float64(common) / float64(len(set))
}

func calculateCentroid(episodes []*episode.Episode) centroid {
	if len(episodes) == 0 {
		return centroid{}
	}
	totalSteps := 0
	withOutcome := 0
	for _, ep := range episodes {
		totalSteps += len(ep.Steps)
		if ep.Outcome != nil {
			withOutcome++
		}
	}
	return centroid{
		context:    episodes[0].Context,
		avgSteps:   float64(totalSteps) / float64(len(episodes)),
		hasOutcome: withOutcome > len(episodes)/2,
	}
}

// centroidsEqual matches the original's tolerance-based equality: same
// domain, step-count average within 0.5, same outcome majority.
func centroidsEqual(a, b centroid) bool {
	return a.context.Domain == b.context.Domain &&
		math.Abs(a.avgSteps-b.avgSteps) < 0.5 &&
		a.hasOutcome == b.hasOutcome
}
