package embedding

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/jordigilh/kubernaut/pkg/shared/errutil"
)

// RemoteProvider adapts a langchaingo embeddings.Embedder (OpenAI,
// HuggingFace, or any other backend langchaingo supports) to this
// module's narrower Provider contract. It is a thin pass-through: no
// retry policy, no rate limiting, no connection pooling beyond whatever
// the wrapped client already does — production-hardened remote I/O is
// explicitly out of scope (spec.md §1).
type RemoteProvider struct {
	embedder   embeddings.Embedder
	dimensions int
	hints      Hints
}

var _ Provider = (*RemoteProvider)(nil)

// NewRemoteProvider wraps an already-configured langchaingo embedder.
// dimensions is the provider's declared vector length (langchaingo's
// Embedder interface does not expose this itself).
func NewRemoteProvider(embedder embeddings.Embedder, dimensions int, hints Hints) *RemoteProvider {
	return &RemoteProvider{embedder: embedder, dimensions: dimensions, hints: hints}
}

// Dimensions returns the provider's configured vector length.
func (p *RemoteProvider) Dimensions() int {
	return p.dimensions
}

// Embed delegates to the wrapped embedder's single-query path.
func (p *RemoteProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, errutil.NetworkError("embed", "embedding-provider", err)
	}
	return vec, nil
}

// EmbedBatch delegates to the wrapped embedder's document-batch path,
// which providers typically implement more efficiently than N
// sequential single-query calls.
func (p *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, errutil.NetworkError("embed_batch", "embedding-provider", err)
	}
	return vecs, nil
}

// Hints returns the optimization hints configured at construction time.
func (p *RemoteProvider) Hints() Hints {
	return p.hints
}
