package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
)

// DefaultLocalDimensions is the vector size NewLocalProvider uses when
// it is given a dimension count of zero or less.
const DefaultLocalDimensions = 128

// LocalProvider is a deterministic, dependency-free embedding provider:
// it hashes overlapping word shingles of the input text into buckets of
// a fixed-size vector and L2-normalizes the result. It produces no
// useful semantic structure beyond lexical overlap, but it is stable,
// fast, and requires no network access — exactly what local
// development and the test suite need, per §6.1's "local" provider
// hint in internal/config.
type LocalProvider struct {
	dimensions int
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider returns a LocalProvider producing vectors of the
// given dimension, defaulting to DefaultLocalDimensions when dims <= 0.
func NewLocalProvider(dims int) *LocalProvider {
	if dims <= 0 {
		dims = DefaultLocalDimensions
	}
	return &LocalProvider{dimensions: dims}
}

// Dimensions returns the provider's fixed vector length.
func (p *LocalProvider) Dimensions() int {
	return p.dimensions
}

// Embed hashes text's word shingles into a vector and L2-normalizes it.
func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, apperrors.NewInvalidInputError("cannot embed empty text")
	}
	return p.vectorFor(text), nil
}

// EmbedBatch embeds each of texts independently, preserving order.
func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Hints declares a generous batch size since there is no remote
// round-trip to amortize.
func (p *LocalProvider) Hints() Hints {
	return Hints{BatchSize: 256, MaxRetries: 0, RateLimitPerSecond: 0}
}

func (p *LocalProvider) vectorFor(text string) []float32 {
	vec := make([]float64, p.dimensions)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		words = []string{text}
	}

	for _, tok := range shingles(words, 2) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(p.dimensions))
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, p.dimensions)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// shingles returns every unigram and, when there are at least two
// words, every bigram of words — giving the hash a little local word
// order to latch onto beyond a pure bag-of-words.
func shingles(words []string, n int) []string {
	out := make([]string, 0, len(words)*2)
	out = append(out, words...)
	for i := 0; i+n <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+n], " "))
	}
	return out
}
