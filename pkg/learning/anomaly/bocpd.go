package anomaly

import (
	"math"

	"github.com/jordigilh/kubernaut/pkg/shared/mathutil"
)

// BOCPDConfig holds the hyperparameters for online Bayesian change
// point detection.
type BOCPDConfig struct {
	HazardRate             float64
	ExpectedRunLength       int
	MaxRunLengthHypotheses int
	AlertThreshold         float64
	BufferSize             int
}

// DefaultBOCPDConfig mirrors the reference implementation's defaults:
// a constant hazard of 1/250, capped at 500 run-length hypotheses, and
// an alert threshold of 0.5.
func DefaultBOCPDConfig() BOCPDConfig {
	return BOCPDConfig{
		HazardRate:             250,
		ExpectedRunLength:      250,
		MaxRunLengthHypotheses: 500,
		AlertThreshold:         0.5,
		BufferSize:             500,
	}
}

// BOCPD maintains a run-length posterior over a streaming scalar
// signal with a constant hazard and a Gaussian predictive likelihood
// (mean/variance re-estimated from the observations seen so far within
// each hypothesized run).
type BOCPD struct {
	cfg BOCPDConfig

	logProbs []float64   // log P(run_length = r | data so far)
	sums     []float64   // running sum of observations for each run-length hypothesis
	sumsSq   []float64   // running sum of squares for each run-length hypothesis
	counts   []int       // observation count backing each hypothesis
	buffer   []float64   // circular buffer of recent observations, for reporting
}

// NewBOCPD constructs a detector starting from the single hypothesis
// run_length = 0.
func NewBOCPD(cfg BOCPDConfig) *BOCPD {
	return &BOCPD{
		cfg:      cfg,
		logProbs: []float64{0}, // log(1.0): certain we start at run length 0
		sums:     []float64{0},
		sumsSq:   []float64{0},
		counts:   []int{0},
	}
}

// Alert reports a detected change point at the sample index it was
// observed.
type Alert struct {
	Index       int
	Probability float64
}

// Observe folds one new sample into the run-length posterior and
// returns an Alert if the probability that the run just reset (run
// length 0 or 1) reaches AlertThreshold. Run length 0 alone always
// carries exactly the hazard after normalization, so the reset mass
// also takes in the hypothesis that restarted one sample earlier.
func (b *BOCPD) Observe(index int, x float64) *Alert {
	b.pushBuffer(x)

	n := len(b.logProbs)
	newLogProbs := make([]float64, n+1)
	newSums := make([]float64, n+1)
	newSumsSq := make([]float64, n+1)
	newCounts := make([]int, n+1)

	logHazard := math.Log(1 / b.cfg.HazardRate)
	log1MinusHazard := math.Log(1 - 1/b.cfg.HazardRate)

	growthMass := make([]float64, 0, n)
	cpMass := math.Inf(-1)

	for r := 0; r < n; r++ {
		pred := b.predictiveLogLikelihood(r, x)

		growth := b.logProbs[r] + pred + log1MinusHazard
		growthMass = append(growthMass, growth)

		changepoint := b.logProbs[r] + pred + logHazard
		cpMass = mathutil.LogSumExp([]float64{cpMass, changepoint})
	}

	newLogProbs[0] = cpMass
	newCounts[0] = 0
	for r := 0; r < n; r++ {
		newLogProbs[r+1] = growthMass[r]
		newSums[r+1] = b.sums[r] + x
		newSumsSq[r+1] = b.sumsSq[r] + x*x
		newCounts[r+1] = b.counts[r] + 1
	}

	total := mathutil.LogSumExp(newLogProbs)
	for i := range newLogProbs {
		newLogProbs[i] -= total
	}

	if len(newLogProbs) > b.cfg.MaxRunLengthHypotheses && b.cfg.MaxRunLengthHypotheses > 0 {
		trim := len(newLogProbs) - b.cfg.MaxRunLengthHypotheses
		newLogProbs = newLogProbs[:len(newLogProbs)-trim]
		newSums = newSums[:len(newSums)-trim]
		newSumsSq = newSumsSq[:len(newSumsSq)-trim]
		newCounts = newCounts[:len(newCounts)-trim]
	}

	b.logProbs = newLogProbs
	b.sums = newSums
	b.sumsSq = newSumsSq
	b.counts = newCounts

	reset := newLogProbs
	if len(reset) > 2 {
		reset = reset[:2]
	}
	changeProb := math.Exp(mathutil.LogSumExp(reset))
	if changeProb >= b.cfg.AlertThreshold {
		return &Alert{Index: index, Probability: changeProb}
	}
	return nil
}

// predictiveLogLikelihood approximates the Gaussian predictive
// likelihood of x under run-length hypothesis r, estimated from that
// hypothesis's accumulated sufficient statistics. A fresh hypothesis
// (no observations yet) falls back to a wide, weakly-informative prior
// so it neither dominates nor vanishes immediately.
func (b *BOCPD) predictiveLogLikelihood(r int, x float64) float64 {
	if r >= len(b.counts) || b.counts[r] == 0 {
		return gaussianLogPDF(x, 0, 10)
	}
	n := float64(b.counts[r])
	mean := b.sums[r] / n
	variance := b.sumsSq[r]/n - mean*mean
	if variance < 1e-6 {
		variance = 1e-6
	}
	return gaussianLogPDF(x, mean, math.Sqrt(variance))
}

func gaussianLogPDF(x, mean, stddev float64) float64 {
	if stddev <= 0 {
		stddev = 1e-6
	}
	z := (x - mean) / stddev
	return -0.5*z*z - math.Log(stddev) - 0.5*math.Log(2*math.Pi)
}

func (b *BOCPD) pushBuffer(x float64) {
	size := b.cfg.BufferSize
	if size <= 0 {
		size = 500
	}
	b.buffer = append(b.buffer, x)
	if len(b.buffer) > size {
		b.buffer = b.buffer[len(b.buffer)-size:]
	}
}

// RunLengthDistribution returns the current posterior over run
// lengths, P(run_length = r | data), indexed by r.
func (b *BOCPD) RunLengthDistribution() []float64 {
	out := make([]float64, len(b.logProbs))
	for i, lp := range b.logProbs {
		out[i] = math.Exp(lp)
	}
	return out
}
