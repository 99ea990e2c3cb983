package breaker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/storage"
)

// GuardedBackend wraps a storage.Backend so every call is gated by a
// Breaker (C7); the connection pool (C4) and prepared-statement cache
// (C5) are not involved. It implements
// storage.Backend itself, so it drops into any call site that accepts
// one — including pkg/memory/sync.Synchronizer's durable/cache
// arguments — with no other code change.
type GuardedBackend struct {
	backend storage.Backend
	breaker *Breaker
}

var _ storage.Backend = (*GuardedBackend)(nil)

// Guard wraps backend with breaker. A call rejected by the breaker
// returns ErrCircuitOpen without ever reaching backend.
func Guard(backend storage.Backend, breaker *Breaker) *GuardedBackend {
	return &GuardedBackend{backend: backend, breaker: breaker}
}

// Breaker exposes the underlying breaker for stats/administrative reset.
func (g *GuardedBackend) Breaker() *Breaker {
	return g.breaker
}

func (g *GuardedBackend) StoreEpisode(ctx context.Context, ep *episode.Episode) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.StoreEpisode(ctx, ep)
	})
}

func (g *GuardedBackend) GetEpisode(ctx context.Context, id uuid.UUID) (*episode.Episode, error) {
	var out *episode.Episode
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.backend.GetEpisode(ctx, id)
		return err
	})
	return out, err
}

func (g *GuardedBackend) QueryEpisodesSince(ctx context.Context, since time.Time) ([]*episode.Episode, error) {
	var out []*episode.Episode
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.backend.QueryEpisodesSince(ctx, since)
		return err
	})
	return out, err
}

func (g *GuardedBackend) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.DeleteEpisode(ctx, id)
	})
}

func (g *GuardedBackend) StorePattern(ctx context.Context, p *episode.Pattern) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.StorePattern(ctx, p)
	})
}

func (g *GuardedBackend) GetPattern(ctx context.Context, id uuid.UUID) (*episode.Pattern, error) {
	var out *episode.Pattern
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.backend.GetPattern(ctx, id)
		return err
	})
	return out, err
}

func (g *GuardedBackend) DeletePattern(ctx context.Context, id uuid.UUID) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.DeletePattern(ctx, id)
	})
}

func (g *GuardedBackend) StoreHeuristic(ctx context.Context, h *episode.Heuristic) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.StoreHeuristic(ctx, h)
	})
}

func (g *GuardedBackend) GetHeuristic(ctx context.Context, id uuid.UUID) (*episode.Heuristic, error) {
	var out *episode.Heuristic
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.backend.GetHeuristic(ctx, id)
		return err
	})
	return out, err
}

func (g *GuardedBackend) DeleteHeuristic(ctx context.Context, id uuid.UUID) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.DeleteHeuristic(ctx, id)
	})
}

func (g *GuardedBackend) StoreEmbedding(ctx context.Context, key string, vector []float32) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.StoreEmbedding(ctx, key, vector)
	})
}

func (g *GuardedBackend) GetEmbedding(ctx context.Context, key string) (*episode.Embedding, error) {
	var out *episode.Embedding
	err := g.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.backend.GetEmbedding(ctx, key)
		return err
	})
	return out, err
}

func (g *GuardedBackend) DeleteEmbedding(ctx context.Context, key string) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.DeleteEmbedding(ctx, key)
	})
}

func (g *GuardedBackend) Ping(ctx context.Context) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.backend.Ping(ctx)
	})
}
