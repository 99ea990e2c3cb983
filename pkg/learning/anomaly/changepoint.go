package anomaly

import (
	"math"

	"github.com/jordigilh/kubernaut/pkg/shared/mathutil"
)

// ChangeType classifies what differs between the segments before and
// after a detected change point.
type ChangeType string

const (
	ChangeTypeMeanShift      ChangeType = "mean_shift"
	ChangeTypeVarianceChange ChangeType = "variance_change"
	ChangeTypeMixed          ChangeType = "mixed"
)

// ChangeDirection is the sign of the mean difference across a change
// point, meaningful for MeanShift and Mixed changes.
type ChangeDirection string

const (
	DirectionIncrease ChangeDirection = "increase"
	DirectionDecrease ChangeDirection = "decrease"
)

// ChangepointConfig bounds candidate detection for the offline
// PELT-style scan.
type ChangepointConfig struct {
	MinObservations    int
	MinDistance        int
	SignificanceLevel  float64
}

// DefaultChangepointConfig requires 5 observations per candidate
// segment, 1 point of separation between accepted change points, and a
// two-sided 95% significance level (z >= 1.96).
func DefaultChangepointConfig() ChangepointConfig {
	return ChangepointConfig{MinObservations: 5, MinDistance: 1, SignificanceLevel: 0.05}
}

func (c ChangepointConfig) validated() ChangepointConfig {
	if c.MinObservations < 5 {
		c.MinObservations = 5
	}
	if c.MinDistance < 1 {
		c.MinDistance = 1
	}
	if c.SignificanceLevel < 0 {
		c.SignificanceLevel = 0
	}
	if c.SignificanceLevel > 1 {
		c.SignificanceLevel = 1
	}
	return c
}

// Changepoint is one detected shift in a historical series.
type Changepoint struct {
	Index      int
	Magnitude  float64
	ChangeType ChangeType
	Direction  ChangeDirection
}

// DetectChangepoints scans values for candidate split points where the
// segment before and the segment after differ significantly in mean
// (a two-sample z-test on the mean difference); a change in variance
// alone is not detected. Detected points closer together than
// MinDistance are thinned to the higher-magnitude one.
func DetectChangepoints(values []float64, cfg ChangepointConfig) []Changepoint {
	cfg = cfg.validated()
	n := len(values)
	if n < 2*cfg.MinObservations {
		return nil
	}

	candidates := make([]Changepoint, 0)
	for idx := cfg.MinObservations; idx <= n-cfg.MinObservations; idx++ {
		before := values[:idx]
		after := values[idx:]
		z, meanDiff := zStatistic(before, after)
		if math.Abs(z) < 1.96 {
			continue
		}
		candidates = append(candidates, Changepoint{
			Index:      idx,
			Magnitude:  math.Abs(meanDiff),
			ChangeType: classifyChangeType(values, idx),
			Direction:  determineDirection(meanDiff),
		})
	}

	return filterByMinDistance(candidates, cfg.MinDistance)
}

// zStatistic computes Welch's t-like z-statistic for the difference of
// means between two samples, returning the statistic and the raw
// mean(after) - mean(before) difference.
func zStatistic(before, after []float64) (float64, float64) {
	mb := mathutil.Mean(before)
	ma := mathutil.Mean(after)
	vb := mathutil.Variance(before)
	va := mathutil.Variance(after)

	se := math.Sqrt(vb/float64(len(before)) + va/float64(len(after)))
	if se < 1e-9 {
		se = 1e-9
	}
	return (ma - mb) / se, ma - mb
}

// classifyChangeType compares pre/post segment statistics: a
// significant mean shift with stable variance is MeanShift, a
// significant variance shift with stable mean is VarianceChange, and
// both together is Mixed.
func classifyChangeType(values []float64, idx int) ChangeType {
	before := values[:idx]
	after := values[idx:]

	stdBefore := mathutil.StandardDeviation(before)
	stdAfter := mathutil.StandardDeviation(after)

	meanChanged := math.Abs(mathutil.Mean(after)-mathutil.Mean(before)) > 0.1*math.Max(stdBefore, 1e-9)
	varianceChanged := stdBefore > 1e-9 && (stdAfter/stdBefore > 1.5 || stdAfter/stdBefore < 0.67)

	switch {
	case meanChanged && varianceChanged:
		return ChangeTypeMixed
	case varianceChanged:
		return ChangeTypeVarianceChange
	default:
		return ChangeTypeMeanShift
	}
}

func determineDirection(meanDiff float64) ChangeDirection {
	if meanDiff < 0 {
		return DirectionDecrease
	}
	return DirectionIncrease
}

// filterByMinDistance keeps, among any run of candidates closer
// together than minDistance, only the one with the largest magnitude.
func filterByMinDistance(candidates []Changepoint, minDistance int) []Changepoint {
	if len(candidates) == 0 {
		return candidates
	}

	kept := make([]Changepoint, 0, len(candidates))
	current := candidates[0]
	for _, c := range candidates[1:] {
		if c.Index-current.Index < minDistance {
			if c.Magnitude > current.Magnitude {
				current = c
			}
			continue
		}
		kept = append(kept, current)
		current = c
	}
	kept = append(kept, current)
	return kept
}

// SegmentStats summarizes one segment of a series.
type SegmentStats struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// ComputeSegmentStats summarizes values; an empty slice yields the
// zero value.
func ComputeSegmentStats(values []float64) SegmentStats {
	if len(values) == 0 {
		return SegmentStats{}
	}
	return SegmentStats{
		Count:  len(values),
		Mean:   mathutil.Mean(values),
		StdDev: mathutil.StandardDeviation(values),
		Min:    mathutil.Min(values),
		Max:    mathutil.Max(values),
	}
}
