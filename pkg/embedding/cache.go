package embedding

import (
	"context"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/storage"
)

// CachingProvider wraps a Provider with the storage-backed memoization
// §6.1 requires: "the core caches embeddings by a stable string id and
// never re-requests if a cached vector exists". The id passed to
// EmbedCached is the stable key (episode id, pattern id, or query
// hash) callers already compute; Provider.Embed/EmbedBatch never see
// it, since the underlying provider contract is keyed by text, not by
// domain id.
type CachingProvider struct {
	inner Provider
	store storage.Backend
}

// NewCachingProvider wraps inner with lookups/writes against store.
func NewCachingProvider(inner Provider, store storage.Backend) *CachingProvider {
	return &CachingProvider{inner: inner, store: store}
}

// Dimensions delegates to the wrapped provider.
func (c *CachingProvider) Dimensions() int {
	return c.inner.Dimensions()
}

// Embed delegates to the wrapped provider with no caching: plain
// Embed/EmbedBatch calls have no stable id to key a cache entry by.
// Callers that want the §6.1 memoization behavior use EmbedCached.
func (c *CachingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.inner.Embed(ctx, text)
}

// EmbedBatch delegates to the wrapped provider.
func (c *CachingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

// EmbedCached returns the embedding stored under id if one exists,
// computing and persisting it from text via the wrapped provider
// otherwise.
func (c *CachingProvider) EmbedCached(ctx context.Context, id, text string) ([]float32, error) {
	if existing, err := c.store.GetEmbedding(ctx, id); err == nil {
		return existing.Vector, nil
	} else if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.store.StoreEmbedding(ctx, id, vec); err != nil {
		return nil, err
	}
	return vec, nil
}
