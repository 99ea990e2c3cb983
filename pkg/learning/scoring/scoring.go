// Package scoring ranks, deduplicates, and clusters patterns and
// episodes extracted from completed work.
package scoring

import (
	"math"
	"time"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/shared/mathutil"
)

// Weights controls how the five sub-scores combine into a pattern's
// relevance score. The zero value is not valid; use DefaultWeights.
type Weights struct {
	Semantic      float64
	ContextMatch  float64
	Effectiveness float64
	Recency       float64
	SuccessRate   float64
}

// DefaultWeights matches the combination the teacher's retrieval layer
// was tuned against: semantic similarity dominates, recency and raw
// success rate are tie-breakers.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.4, ContextMatch: 0.2, Effectiveness: 0.2, Recency: 0.1, SuccessRate: 0.1}
}

// Query bundles the inputs a relevance score is computed against.
type Query struct {
	Embedding []float32
	Context   episode.TaskContext
}

// Scored pairs a pattern with the relevance score it earned against a
// Query.
type Scored struct {
	Pattern *episode.Pattern
	Score   float64
}

// Rank scores every candidate against query, keeps only those at or
// above minRelevance, and returns them sorted by descending score.
// embeddingOf looks up the embedding vector associated with a
// pattern's own provenance (typically its source episode or its own
// stored embedding key); a nil result scores semantic_similarity as 0.
func Rank(candidates []*episode.Pattern, query Query, weights Weights, minRelevance float64, now time.Time, embeddingOf func(*episode.Pattern) []float32) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, p := range candidates {
		s := Score(p, query, weights, now, embeddingOf(p))
		if s >= minRelevance {
			scored = append(scored, Scored{Pattern: p, Score: s})
		}
	}
	sortScoredDescending(scored)
	return scored
}

func sortScoredDescending(scored []Scored) {
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Score > scored[j-1].Score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
}

// Score computes a pattern's weighted relevance score against query.
func Score(p *episode.Pattern, query Query, weights Weights, now time.Time, patternEmbedding []float32) float64 {
	semantic := semanticSimilarity(query.Embedding, patternEmbedding)
	context := contextMatch(query.Context, p.Context)
	effectiveness := clamp01(patternEffectiveness(p))
	recency := recencyScore(p, now)
	success := clamp01(p.Effectiveness.SuccessRate())

	return weights.Semantic*semantic +
		weights.ContextMatch*context +
		weights.Effectiveness*effectiveness +
		weights.Recency*recency +
		weights.SuccessRate*success
}

// semanticSimilarity rescales cosine similarity from [-1,1] to [0,1].
// Two empty or mismatched-length vectors score 0.
func semanticSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	af := make([]float64, len(a))
	bf := make([]float64, len(b))
	for i := range a {
		af[i] = float64(a[i])
		bf[i] = float64(b[i])
	}
	cos := mathutil.CosineSimilarity(af, bf)
	return (cos + 1) / 2
}

// contextMatch averages domain equality with tag-set Jaccard
// similarity.
func contextMatch(a, b episode.TaskContext) float64 {
	domain := 0.0
	if a.Domain != "" && a.Domain == b.Domain {
		domain = 1.0
	}
	tags := mathutil.JaccardSimilarity(a.Tags, b.Tags)
	return (domain + tags) / 2
}

// patternEffectiveness is a pattern's self-reported effectiveness
// score: for ToolSequence patterns that is SuccessRate, for
// DecisionPoint it is the outcome success ratio, and for the two
// variants with no intrinsic rate it falls back to the shared
// Effectiveness.SuccessRate().
func patternEffectiveness(p *episode.Pattern) float64 {
	switch p.Kind {
	case episode.PatternToolSequence:
		return p.SuccessRate
	case episode.PatternDecisionPoint:
		if p.OutcomeTotal == 0 {
			return 0
		}
		return float64(p.OutcomeSuccesses) / float64(p.OutcomeTotal)
	default:
		return p.Effectiveness.SuccessRate()
	}
}

// recencyScore decays exponentially with age in days, halving roughly
// every 21 days (exp(-age_days/30)).
func recencyScore(p *episode.Pattern, now time.Time) float64 {
	last := p.Effectiveness.LastUsed
	if last.IsZero() {
		return 0
	}
	ageDays := now.Sub(last).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / 30)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
