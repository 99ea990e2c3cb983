// Package anomaly finds outlying and structurally anomalous episodes:
// density-based clustering (DBSCAN) for batch anomaly reports, online
// Bayesian change point detection for streaming metrics, and an
// offline PELT-style detector for historical analysis.
package anomaly

import (
	"math"
	"sort"

	"github.com/jordigilh/kubernaut/pkg/shared/mathutil"
)

const (
	labelUnvisited = -2
	labelNoise     = -1
)

// DBSCANConfig controls density-based clustering. Eps may be left at
// zero to auto-derive it from the data via AdaptiveEps; MinSamples is
// always used as given.
type DBSCANConfig struct {
	Eps        float64
	MinSamples int
}

// DefaultDBSCANConfig leaves Eps at 0 (auto-derive) and requires 3
// points to form a dense region.
func DefaultDBSCANConfig() DBSCANConfig {
	return DBSCANConfig{Eps: 0, MinSamples: 3}
}

// AdaptiveEps derives eps from the data: for each point, the distance
// to its k-th nearest neighbor (k = ceil(min_samples/2)); eps is the
// median of those distances, scaled by 1.5 and clamped to [0.1, 2.0].
func AdaptiveEps(features [][]float64, minSamples int) float64 {
	if len(features) < 2 {
		return 0.1
	}
	k := int(math.Ceil(float64(minSamples) / 2))
	if k < 1 {
		k = 1
	}

	kth := make([]float64, 0, len(features))
	for i, f := range features {
		others := make([][]float64, 0, len(features)-1)
		for j, g := range features {
			if i != j {
				others = append(others, g)
			}
		}
		d := mathutil.KNearestDistance(f, others, k)
		kth = append(kth, d)
	}

	sort.Float64s(kth)
	median := medianOf(kth)
	return clamp(median*1.5, 0.1, 2.0)
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Label is a DBSCAN point's assignment: a non-negative cluster id, or
// Noise.
type Label int

const Noise Label = -1

// Run applies DBSCAN to features (one row per point) and returns one
// label per point, in input order. Points in no dense region are
// labeled Noise.
func Run(cfg DBSCANConfig, features [][]float64) []Label {
	eps := cfg.Eps
	if eps <= 0 {
		eps = AdaptiveEps(features, cfg.MinSamples)
	}

	n := len(features)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = labelUnvisited
	}
	visited := make([]bool, n)
	nextCluster := 0

	for i := 0; i < n; i++ {
		if visited[i] || labels[i] != labelUnvisited {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(features, i, eps)
		if len(neighbors) < cfg.MinSamples {
			labels[i] = labelNoise
			continue
		}

		expandCluster(features, i, neighbors, nextCluster, eps, cfg.MinSamples, labels)
		nextCluster++
	}

	out := make([]Label, n)
	for i, l := range labels {
		out[i] = Label(l)
	}
	return out
}

func regionQuery(features [][]float64, i int, eps float64) []int {
	neighbors := make([]int, 0)
	for j, f := range features {
		if i == j {
			continue
		}
		if mathutil.EuclideanDistance(features[i], f) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

func expandCluster(features [][]float64, seed int, neighbors []int, clusterID int, eps float64, minSamples int, labels []int) {
	labels[seed] = clusterID
	queue := append([]int(nil), neighbors...)

	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if labels[p] != labelUnvisited {
			continue
		}
		labels[p] = clusterID

		pNeighbors := regionQuery(features, p, eps)
		if len(pNeighbors) >= minSamples {
			for _, n := range pNeighbors {
				if labels[n] == labelUnvisited {
					queue = append(queue, n)
				}
			}
		}
	}
}

// AnomalyReport describes one noise point: its index into the input
// feature slice and the distance to its nearest non-noise point (the
// nearest surviving cluster), or +Inf if every point is noise.
type AnomalyReport struct {
	Index              int
	DistanceToNearest  float64
}

// BuildReports returns one AnomalyReport per point labeled Noise.
func BuildReports(features [][]float64, labels []Label) []AnomalyReport {
	reports := make([]AnomalyReport, 0)
	for i, l := range labels {
		if l != Noise {
			continue
		}
		nearest := math.Inf(1)
		for j, other := range labels {
			if other == Noise || i == j {
				continue
			}
			d := mathutil.EuclideanDistance(features[i], features[j])
			if d < nearest {
				nearest = d
			}
		}
		reports = append(reports, AnomalyReport{Index: i, DistanceToNearest: nearest})
	}
	return reports
}
