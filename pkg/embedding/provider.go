// Package embedding implements the consumed embedding-provider
// contract (§6.1): turning text into the fixed-dimension, L2-normalized
// vectors every semantic-similarity computation in this module assumes.
// Only the vector contract is load-bearing; the providers here are
// intentionally thin, since production-hardened remote embedding I/O is
// out of scope (spec.md §1 Non-goals).
package embedding

import "context"

// Provider turns text into embedding vectors. Implementations must
// return L2-normalized vectors of a fixed, provider-declared dimension.
type Provider interface {
	// Embed returns the embedding vector for a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in the same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the fixed vector length this provider
	// produces.
	Dimensions() int
}

// Hints describes a provider's self-declared optimization
// preferences, which callers that batch many embed calls together
// (the pattern-extraction pipeline, bulk re-indexing) should respect.
type Hints struct {
	// BatchSize is the largest number of texts the provider wants in a
	// single EmbedBatch call.
	BatchSize int

	// MaxRetries is the number of transient-failure retries the
	// provider's own client already performs internally.
	MaxRetries int

	// RateLimitPerSecond caps how many Embed/EmbedBatch calls a caller
	// should issue per second.
	RateLimitPerSecond int
}

// HintsAware is implemented by providers that declare optimization
// hints; providers that don't implement it are assumed to have no
// preference.
type HintsAware interface {
	Hints() Hints
}
