// Package cachekv implements the Redis-backed storage.Backend (C3): a
// thin key-value mapping over the same entity set the durable store
// covers, treated as lossy at the system level — a missing cache entry
// is never an error, only a NotFound result the synchronizer (C8)
// understands to mean "not cached yet". Each operation records an
// OpenTelemetry span alongside its metrics and log line.
package cachekv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/metrics"
	"github.com/jordigilh/kubernaut/pkg/shared/logging"
	"github.com/jordigilh/kubernaut/pkg/storage"
)

const (
	episodePrefix   = "episode:"
	patternPrefix   = "pattern:"
	heuristicPrefix = "heuristic:"
	embeddingPrefix = "embedding:"
	metadataKey     = "metadata"
)

// Store is the Redis-backed cache storage.Backend.
type Store struct {
	client redis.UniversalClient
	log    *logrus.Entry
	tracer trace.Tracer
}

var _ storage.Backend = (*Store)(nil)

// New wraps an already-connected Redis client (or a miniredis-backed
// client in tests).
func New(client redis.UniversalClient, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{client: client, log: log.WithField("component", "cache_store"), tracer: otel.Tracer("cache_store")}
}

func (s *Store) record(ctx context.Context, operation string, start time.Time, err error) {
	duration := time.Since(start)
	_, span := s.tracer.Start(ctx, operation, trace.WithTimestamp(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(start.Add(duration)))

	metrics.RecordStorageOperation("cache", operation)
	fields := logging.NewFields().Component("cache_store").Operation(operation).Duration(duration)
	if err != nil {
		metrics.RecordStorageOperationError("cache", operation)
		s.log.WithFields(fields.Error(err).ToLogrus()).Warn("cache store operation failed")
		return
	}
	s.log.WithFields(fields.ToLogrus()).Debug("cache store operation")
}

func set(ctx context.Context, client redis.UniversalClient, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewSerializationError("failed to marshal value for cache").WithDetailsf("%v", err)
	}
	return client.Set(ctx, key, b, 0).Err()
}

func get(ctx context.Context, client redis.UniversalClient, key string, out interface{}, resource string) error {
	b, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return apperrors.NewNotFoundError(resource)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return apperrors.NewSerializationError("failed to unmarshal cached value").WithDetailsf("%v", err)
	}
	return nil
}

// StoreEpisode implements storage.Backend.
func (s *Store) StoreEpisode(ctx context.Context, ep *episode.Episode) error {
	start := time.Now()
	err := set(ctx, s.client, episodePrefix+ep.ID.String(), ep)
	s.record(ctx, "store_episode", start, err)
	return err
}

// GetEpisode implements storage.Backend.
func (s *Store) GetEpisode(ctx context.Context, id uuid.UUID) (*episode.Episode, error) {
	start := time.Now()
	var ep episode.Episode
	err := get(ctx, s.client, episodePrefix+id.String(), &ep, "episode")
	s.record(ctx, "get_episode", start, err)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// QueryEpisodesSince implements storage.Backend. The cache holds no
// secondary time index, so this scans every cached episode key — an
// acceptable cost since callers route time-range queries through the
// durable store (see pkg/memory/sync) and only fall back here for
// cache-recovery diagnostics.
func (s *Store) QueryEpisodesSince(ctx context.Context, since time.Time) ([]*episode.Episode, error) {
	start := time.Now()
	var out []*episode.Episode
	iter := s.client.Scan(ctx, 0, episodePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		var ep episode.Episode
		if err := get(ctx, s.client, iter.Val(), &ep, "episode"); err != nil {
			continue
		}
		if !ep.StartTime.Before(since) {
			out = append(out, &ep)
		}
	}
	err := iter.Err()
	s.record(ctx, "query_episodes_since", start, err)
	return out, err
}

// DeleteEpisode implements storage.Backend.
func (s *Store) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.client.Del(ctx, episodePrefix+id.String()).Err()
	s.record(ctx, "delete_episode", start, err)
	return err
}

// StorePattern implements storage.Backend.
func (s *Store) StorePattern(ctx context.Context, p *episode.Pattern) error {
	start := time.Now()
	err := set(ctx, s.client, patternPrefix+p.ID.String(), p)
	s.record(ctx, "store_pattern", start, err)
	return err
}

// GetPattern implements storage.Backend.
func (s *Store) GetPattern(ctx context.Context, id uuid.UUID) (*episode.Pattern, error) {
	start := time.Now()
	var p episode.Pattern
	err := get(ctx, s.client, patternPrefix+id.String(), &p, "pattern")
	s.record(ctx, "get_pattern", start, err)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePattern implements storage.Backend.
func (s *Store) DeletePattern(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.client.Del(ctx, patternPrefix+id.String()).Err()
	s.record(ctx, "delete_pattern", start, err)
	return err
}

// StoreHeuristic implements storage.Backend.
func (s *Store) StoreHeuristic(ctx context.Context, h *episode.Heuristic) error {
	start := time.Now()
	err := set(ctx, s.client, heuristicPrefix+h.ID.String(), h)
	s.record(ctx, "store_heuristic", start, err)
	return err
}

// GetHeuristic implements storage.Backend.
func (s *Store) GetHeuristic(ctx context.Context, id uuid.UUID) (*episode.Heuristic, error) {
	start := time.Now()
	var h episode.Heuristic
	err := get(ctx, s.client, heuristicPrefix+id.String(), &h, "heuristic")
	s.record(ctx, "get_heuristic", start, err)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// DeleteHeuristic implements storage.Backend.
func (s *Store) DeleteHeuristic(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.client.Del(ctx, heuristicPrefix+id.String()).Err()
	s.record(ctx, "delete_heuristic", start, err)
	return err
}

// StoreEmbedding implements storage.Backend.
func (s *Store) StoreEmbedding(ctx context.Context, key string, vector []float32) error {
	start := time.Now()
	emb := episode.Embedding{Key: key, Vector: vector, CreatedAt: time.Now().UTC()}
	err := set(ctx, s.client, embeddingPrefix+key, emb)
	s.record(ctx, "store_embedding", start, err)
	return err
}

// GetEmbedding implements storage.Backend.
func (s *Store) GetEmbedding(ctx context.Context, key string) (*episode.Embedding, error) {
	start := time.Now()
	var emb episode.Embedding
	err := get(ctx, s.client, embeddingPrefix+key, &emb, "embedding")
	s.record(ctx, "get_embedding", start, err)
	if err != nil {
		return nil, err
	}
	return &emb, nil
}

// DeleteEmbedding implements storage.Backend.
func (s *Store) DeleteEmbedding(ctx context.Context, key string) error {
	start := time.Now()
	err := s.client.Del(ctx, embeddingPrefix+key).Err()
	s.record(ctx, "delete_embedding", start, err)
	return err
}

// Ping implements storage.Backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SetMetadata stashes an auxiliary field in the store's metadata hash,
// used by the façade to record things like last-successful-sync time
// that don't belong to any single entity.
func (s *Store) SetMetadata(ctx context.Context, field, value string) error {
	return s.client.HSet(ctx, metadataKey, field, value).Err()
}

// GetMetadata reads a field from the metadata hash, returning "" if unset.
func (s *Store) GetMetadata(ctx context.Context, field string) (string, error) {
	v, err := s.client.HGet(ctx, metadataKey, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata field %s: %w", field, err)
	}
	return v, nil
}
