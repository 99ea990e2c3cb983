// Package search implements the hybrid search combiner: a weighted
// fusion of vector-similarity and lexical (full-text) relevance scores
// into a single ranked result list.
package search

import (
	"sort"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
)

// Config weights vector similarity against lexical relevance. The two
// weights are normalized to sum to 1.0 on construction.
type Config struct {
	VectorWeight float64
	LexicalWeight float64
}

// NewConfig normalizes vectorWeight and lexicalWeight so they sum to 1.0.
func NewConfig(vectorWeight, lexicalWeight float64) Config {
	total := vectorWeight + lexicalWeight
	if total == 0 {
		return Config{}
	}
	return Config{
		VectorWeight:  vectorWeight / total,
		LexicalWeight: lexicalWeight / total,
	}
}

// DefaultConfig favors vector similarity (0.7 vector, 0.3 lexical).
func DefaultConfig() Config { return NewConfig(0.7, 0.3) }

// VectorOnlyConfig disables lexical scoring entirely.
func VectorOnlyConfig() Config { return Config{VectorWeight: 1.0, LexicalWeight: 0.0} }

// KeywordOnlyConfig disables vector scoring entirely.
func KeywordOnlyConfig() Config { return Config{VectorWeight: 0.0, LexicalWeight: 1.0} }

// Validate reports an error if either weight falls outside [0, 1] or
// the two do not sum to 1.0 within tolerance.
func (c Config) Validate() error {
	if c.VectorWeight < 0 || c.VectorWeight > 1 {
		return apperrors.NewInvalidInputError("vector weight must be between 0.0 and 1.0")
	}
	if c.LexicalWeight < 0 || c.LexicalWeight > 1 {
		return apperrors.NewInvalidInputError("lexical weight must be between 0.0 and 1.0")
	}
	if diff := c.VectorWeight + c.LexicalWeight - 1.0; diff > 1e-4 || diff < -1e-4 {
		return apperrors.NewInvalidInputError("weights must sum to 1.0")
	}
	return nil
}

// Result is one item's combined hybrid score alongside its component
// scores.
type Result[T comparable] struct {
	Item         T
	HybridScore  float64
	VectorScore  float64
	LexicalScore float64
}

func newResult[T comparable](item T, vectorScore, lexicalScore float64, cfg Config) Result[T] {
	return Result[T]{
		Item:         item,
		HybridScore:  cfg.VectorWeight*vectorScore + cfg.LexicalWeight*lexicalScore,
		VectorScore:  vectorScore,
		LexicalScore: lexicalScore,
	}
}

// Hybrid combines vector-similarity and lexical search results under a
// fixed weighting configuration.
type Hybrid struct {
	config Config
}

// New returns a Hybrid combiner using DefaultConfig.
func New() *Hybrid {
	return &Hybrid{config: DefaultConfig()}
}

// NewWithConfig returns a Hybrid combiner using cfg, validated first.
func NewWithConfig(cfg Config) (*Hybrid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Hybrid{config: cfg}, nil
}

// Config returns the combiner's current weighting.
func (h *Hybrid) Config() Config { return h.config }

// UpdateConfig validates and swaps in a new weighting.
func (h *Hybrid) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	h.config = cfg
	return nil
}

// ScoredItem pairs an item with a relevance score from one retrieval
// path (vector or lexical).
type ScoredItem[T comparable] struct {
	Item  T
	Score float64
}

// Search combines vectorResults and lexicalResults into a single
// hybrid-ranked list under h's configured weights, sorted by
// descending HybridScore and truncated to limit. An item missing from
// one side scores 0 on that side rather than being excluded.
//
// Go methods cannot themselves carry type parameters, so the generic
// logic lives in the package-level SearchWith function; this method is
// a thin, non-generic-receiver-friendly wrapper over it.
func (h *Hybrid) Search(vectorResults, lexicalResults []ScoredItem[string], limit int) []Result[string] {
	return SearchWith(h.config, vectorResults, lexicalResults, limit)
}

// SearchWith combines vectorResults and lexicalResults into a single
// hybrid-ranked list under cfg, sorted by descending HybridScore and
// truncated to limit. An item missing from one side scores 0 on that
// side rather than being excluded.
func SearchWith[T comparable](cfg Config, vectorResults, lexicalResults []ScoredItem[T], limit int) []Result[T] {
	vectorScores := make(map[T]float64, len(vectorResults))
	for _, r := range vectorResults {
		vectorScores[r.Item] = r.Score
	}
	lexicalScores := make(map[T]float64, len(lexicalResults))
	for _, r := range lexicalResults {
		lexicalScores[r.Item] = r.Score
	}

	combined := make([]Result[T], 0, len(vectorScores)+len(lexicalScores))
	for item, vScore := range vectorScores {
		combined = append(combined, newResult(item, vScore, lexicalScores[item], cfg))
	}
	for item, lScore := range lexicalScores {
		if _, ok := vectorScores[item]; ok {
			continue
		}
		combined = append(combined, newResult(item, 0, lScore, cfg))
	}

	sort.Slice(combined, func(i, j int) bool {
		return combined[i].HybridScore > combined[j].HybridScore
	})

	if limit >= 0 && limit < len(combined) {
		combined = combined[:limit]
	}
	return combined
}
