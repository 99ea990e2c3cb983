// Package storage defines the polymorphic storage contract every durable
// and cache implementation in this module satisfies, along with the
// optional-value and query helper types those implementations share.
// The shape follows the teacher's pkg/storage/vector.VectorDatabase
// contract: context-first, one method per concern, (T, error) returns.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// Backend is the storage contract both the durable (Postgres) and cache
// (Redis) implementations satisfy. A Backend does not know whether it is
// the durable store or the cache; pkg/memory/sync.Synchronizer is what
// assigns that meaning to a given pair of Backends.
type Backend interface {
	// StoreEpisode persists ep, overwriting any existing episode with
	// the same id.
	StoreEpisode(ctx context.Context, ep *episode.Episode) error

	// GetEpisode returns the episode with the given id, or a
	// NotFound AppError if no such episode exists.
	GetEpisode(ctx context.Context, id uuid.UUID) (*episode.Episode, error)

	// QueryEpisodesSince returns every episode whose StartTime is at or
	// after since, in no particular order.
	QueryEpisodesSince(ctx context.Context, since time.Time) ([]*episode.Episode, error)

	// DeleteEpisode removes the episode with the given id. Deleting an
	// id that does not exist is not an error.
	DeleteEpisode(ctx context.Context, id uuid.UUID) error

	// StorePattern persists p, overwriting any existing pattern with
	// the same id.
	StorePattern(ctx context.Context, p *episode.Pattern) error

	// GetPattern returns the pattern with the given id, or a NotFound
	// AppError if no such pattern exists.
	GetPattern(ctx context.Context, id uuid.UUID) (*episode.Pattern, error)

	// DeletePattern removes the pattern with the given id.
	DeletePattern(ctx context.Context, id uuid.UUID) error

	// StoreHeuristic persists h, overwriting any existing heuristic
	// with the same id.
	StoreHeuristic(ctx context.Context, h *episode.Heuristic) error

	// GetHeuristic returns the heuristic with the given id, or a
	// NotFound AppError if no such heuristic exists.
	GetHeuristic(ctx context.Context, id uuid.UUID) (*episode.Heuristic, error)

	// DeleteHeuristic removes the heuristic with the given id.
	DeleteHeuristic(ctx context.Context, id uuid.UUID) error

	// StoreEmbedding persists vector under key, overwriting any
	// existing embedding under that key.
	StoreEmbedding(ctx context.Context, key string, vector []float32) error

	// GetEmbedding returns the embedding stored under key, or a
	// NotFound AppError if no such embedding exists.
	GetEmbedding(ctx context.Context, key string) (*episode.Embedding, error)

	// DeleteEmbedding removes the embedding stored under key.
	DeleteEmbedding(ctx context.Context, key string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
