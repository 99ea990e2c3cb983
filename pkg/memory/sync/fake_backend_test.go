package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// fakeBackend is an in-memory storage.Backend used to exercise the
// synchronizer without a real durable or cache implementation.
type fakeBackend struct {
	mu         sync.Mutex
	episodes   map[uuid.UUID]*episode.Episode
	patterns   map[uuid.UUID]*episode.Pattern
	heuristics map[uuid.UUID]*episode.Heuristic
	embeddings map[string][]float32
	failNext   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		episodes:   make(map[uuid.UUID]*episode.Episode),
		patterns:   make(map[uuid.UUID]*episode.Pattern),
		heuristics: make(map[uuid.UUID]*episode.Heuristic),
		embeddings: make(map[string][]float32),
	}
}

func (f *fakeBackend) consumeFailure() error {
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("injected failure")
	}
	return nil
}

func (f *fakeBackend) StoreEpisode(ctx context.Context, ep *episode.Episode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consumeFailure(); err != nil {
		return err
	}
	f.episodes[ep.ID] = ep
	return nil
}

func (f *fakeBackend) GetEpisode(ctx context.Context, id uuid.UUID) (*episode.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ep, ok := f.episodes[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("episode")
	}
	return ep, nil
}

func (f *fakeBackend) QueryEpisodesSince(ctx context.Context, since time.Time) ([]*episode.Episode, error) {
	return nil, nil
}

func (f *fakeBackend) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consumeFailure(); err != nil {
		return err
	}
	delete(f.episodes, id)
	return nil
}

func (f *fakeBackend) StorePattern(ctx context.Context, p *episode.Pattern) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consumeFailure(); err != nil {
		return err
	}
	f.patterns[p.ID] = p
	return nil
}

func (f *fakeBackend) GetPattern(ctx context.Context, id uuid.UUID) (*episode.Pattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patterns[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("pattern")
	}
	return p, nil
}

func (f *fakeBackend) DeletePattern(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.patterns, id)
	return nil
}

func (f *fakeBackend) StoreHeuristic(ctx context.Context, h *episode.Heuristic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consumeFailure(); err != nil {
		return err
	}
	f.heuristics[h.ID] = h
	return nil
}

func (f *fakeBackend) GetHeuristic(ctx context.Context, id uuid.UUID) (*episode.Heuristic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.heuristics[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("heuristic")
	}
	return h, nil
}

func (f *fakeBackend) DeleteHeuristic(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.heuristics, id)
	return nil
}

func (f *fakeBackend) StoreEmbedding(ctx context.Context, key string, vector []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consumeFailure(); err != nil {
		return err
	}
	f.embeddings[key] = vector
	return nil
}

func (f *fakeBackend) GetEmbedding(ctx context.Context, key string) (*episode.Embedding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.embeddings[key]
	if !ok {
		return nil, apperrors.NewNotFoundError("embedding")
	}
	return &episode.Embedding{Key: key, Vector: v}, nil
}

func (f *fakeBackend) DeleteEmbedding(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.embeddings, key)
	return nil
}

func (f *fakeBackend) Ping(ctx context.Context) error { return nil }
