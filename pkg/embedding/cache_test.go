package embedding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/storage"
)

// fakeBackend is a minimal in-memory storage.Backend double exercising
// only the embedding methods CachingProvider touches.
type fakeBackend struct {
	mu         sync.Mutex
	embeddings map[string][]float32
}

var _ storage.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{embeddings: make(map[string][]float32)}
}

func (f *fakeBackend) StoreEmbedding(_ context.Context, key string, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeddings[key] = vector
	return nil
}

func (f *fakeBackend) GetEmbedding(_ context.Context, key string) (*episode.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.embeddings[key]
	if !ok {
		return nil, apperrors.NewNotFoundError("embedding")
	}
	return &episode.Embedding{Key: key, Vector: v, CreatedAt: time.Now().UTC()}, nil
}

func (f *fakeBackend) DeleteEmbedding(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.embeddings, key)
	return nil
}

func (f *fakeBackend) StoreEpisode(context.Context, *episode.Episode) error { return nil }
func (f *fakeBackend) GetEpisode(context.Context, uuid.UUID) (*episode.Episode, error) {
	return nil, apperrors.NewNotFoundError("episode")
}
func (f *fakeBackend) QueryEpisodesSince(context.Context, time.Time) ([]*episode.Episode, error) {
	return nil, nil
}
func (f *fakeBackend) DeleteEpisode(context.Context, uuid.UUID) error { return nil }
func (f *fakeBackend) StorePattern(context.Context, *episode.Pattern) error { return nil }
func (f *fakeBackend) GetPattern(context.Context, uuid.UUID) (*episode.Pattern, error) {
	return nil, apperrors.NewNotFoundError("pattern")
}
func (f *fakeBackend) DeletePattern(context.Context, uuid.UUID) error { return nil }
func (f *fakeBackend) StoreHeuristic(context.Context, *episode.Heuristic) error { return nil }
func (f *fakeBackend) GetHeuristic(context.Context, uuid.UUID) (*episode.Heuristic, error) {
	return nil, apperrors.NewNotFoundError("heuristic")
}
func (f *fakeBackend) DeleteHeuristic(context.Context, uuid.UUID) error { return nil }
func (f *fakeBackend) Ping(context.Context) error                       { return nil }

// countingProvider counts Embed calls to prove the cache short-circuits them.
type countingProvider struct {
	*LocalProvider
	calls int
}

func (c *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.LocalProvider.Embed(ctx, text)
}

func TestCachingProviderSkipsRecomputeOnHit(t *testing.T) {
	backend := newFakeBackend()
	inner := &countingProvider{LocalProvider: NewLocalProvider(16)}
	c := NewCachingProvider(inner, backend)

	first, err := c.EmbedCached(context.Background(), "episode-1", "fix the race condition")
	if err != nil {
		t.Fatalf("EmbedCached: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", inner.calls)
	}

	second, err := c.EmbedCached(context.Background(), "episode-1", "a completely different text")
	if err != nil {
		t.Fatalf("EmbedCached: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected no additional provider call on a cache hit, got %d total calls", inner.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected the cached vector to be returned unchanged")
		}
	}
}

func TestCachingProviderComputesOnMiss(t *testing.T) {
	backend := newFakeBackend()
	inner := &countingProvider{LocalProvider: NewLocalProvider(16)}
	c := NewCachingProvider(inner, backend)

	if _, err := c.EmbedCached(context.Background(), "episode-a", "alpha"); err != nil {
		t.Fatalf("EmbedCached: %v", err)
	}
	if _, err := c.EmbedCached(context.Background(), "episode-b", "beta"); err != nil {
		t.Fatalf("EmbedCached: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 provider calls for 2 distinct ids, got %d", inner.calls)
	}
}
