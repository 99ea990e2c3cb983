// Package mathutil provides the numeric primitives shared by the
// retrieval and learning layers: vector similarity, descriptive
// statistics, and the small numeric helpers pattern scoring and anomaly
// detection build on.
package mathutil

import "math"

// CosineSimilarity returns the cosine similarity of a and b, in [-1, 1].
// It returns 0.0 for mismatched lengths, empty vectors, or either vector
// being all-zero, rather than propagating NaN.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Mean returns the arithmetic mean of values, or 0.0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	return Sum(values) / float64(len(values))
}

// Variance returns the population variance of values (divides by N, not
// N-1), or 0.0 for an empty or single-element slice.
func Variance(values []float64) float64 {
	if len(values) <= 1 {
		return 0.0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return sumSq / float64(len(values))
}

// StandardDeviation returns the population standard deviation of values.
func StandardDeviation(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Min returns the smallest value in values, or 0.0 for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value in values, or 0.0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Sum returns the sum of values, or 0.0 for an empty slice.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// JaccardSimilarity returns the Jaccard index of two string sets: the
// size of their intersection over the size of their union. Two empty
// sets are defined as similarity 1.0 (nothing to disagree on).
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}

	intersection := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// LogSumExp computes log(sum(exp(values))) in a numerically stable way,
// used by the anomaly detector's Bayesian run-length posterior. Returns
// math.Inf(-1) for an empty slice.
func LogSumExp(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	max := Max(values)
	if math.IsInf(max, -1) {
		return math.Inf(-1)
	}
	var sumExp float64
	for _, v := range values {
		sumExp += math.Exp(v - max)
	}
	return max + math.Log(sumExp)
}

// EuclideanDistance returns the Euclidean distance between a and b. It
// returns math.Inf(1) for mismatched lengths, mirroring the "incomparable"
// behavior of CosineSimilarity's 0.0 sentinel but at the opposite end of
// the distance scale so incomparable points never look nearest.
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sumSq float64
	for i := range a {
		d := a[i] - b[i]
		sumSq += d * d
	}
	return math.Sqrt(sumSq)
}

// KNearestDistance returns the distance from point to its k-th nearest
// neighbor among candidates, used to auto-derive DBSCAN's eps parameter.
// It returns 0.0 if k is out of range for the number of candidates.
func KNearestDistance(point []float64, candidates [][]float64, k int) float64 {
	if k <= 0 || k > len(candidates) {
		return 0.0
	}

	distances := make([]float64, len(candidates))
	for i, c := range candidates {
		distances[i] = EuclideanDistance(point, c)
	}

	// Partial selection sort is sufficient: k is small relative to the
	// candidate set in practice (episode neighborhoods, not full corpora).
	for i := 0; i < k; i++ {
		minIdx := i
		for j := i + 1; j < len(distances); j++ {
			if distances[j] < distances[minIdx] {
				minIdx = j
			}
		}
		distances[i], distances[minIdx] = distances[minIdx], distances[i]
	}
	return distances[k-1]
}
