// Package sync implements the write-through synchronizer (C8): every
// mutating call awaits the durable store first, and its success is the
// call's success; the cache store is then written best-effort, and any
// failure there is logged but never propagated. Reads bypass the
// synchronizer entirely — callers choose which store to read from
// directly.
package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/shared/logging"
	"github.com/jordigilh/kubernaut/pkg/storage"
)

// Synchronizer write-throughs mutations to a durable backend and best-
// effort mirrors them to a cache backend.
type Synchronizer struct {
	durable storage.Backend
	cache   storage.Backend
	log     *logrus.Entry
}

// New constructs a Synchronizer over a durable and a cache backend.
func New(durable, cache storage.Backend, log *logrus.Logger) *Synchronizer {
	if log == nil {
		log = logrus.New()
	}
	return &Synchronizer{durable: durable, cache: cache, log: log.WithField("component", "storage_synchronizer")}
}

func (s *Synchronizer) warnCacheFailure(operation string, err error) {
	s.log.WithFields(logging.NewFields().
		Component("storage_synchronizer").
		Operation(operation).
		Error(err).ToLogrus()).
		Warn("cache write failed after a successful durable write")
}

// StoreEpisode persists ep to the durable store; on success, it also
// writes ep to the cache, swallowing any cache failure.
func (s *Synchronizer) StoreEpisode(ctx context.Context, ep *episode.Episode) error {
	if err := s.durable.StoreEpisode(ctx, ep); err != nil {
		return err
	}
	if err := s.cache.StoreEpisode(ctx, ep); err != nil {
		s.warnCacheFailure("store_episode", err)
	}
	return nil
}

// StorePattern persists p to the durable store; on success, it also
// writes p to the cache, swallowing any cache failure.
func (s *Synchronizer) StorePattern(ctx context.Context, p *episode.Pattern) error {
	if err := s.durable.StorePattern(ctx, p); err != nil {
		return err
	}
	if err := s.cache.StorePattern(ctx, p); err != nil {
		s.warnCacheFailure("store_pattern", err)
	}
	return nil
}

// StoreHeuristic persists h to the durable store; on success, it also
// writes h to the cache, swallowing any cache failure.
func (s *Synchronizer) StoreHeuristic(ctx context.Context, h *episode.Heuristic) error {
	if err := s.durable.StoreHeuristic(ctx, h); err != nil {
		return err
	}
	if err := s.cache.StoreHeuristic(ctx, h); err != nil {
		s.warnCacheFailure("store_heuristic", err)
	}
	return nil
}

// StoreEmbedding persists vector under key to the durable store; on
// success, it also writes it to the cache, swallowing any cache failure.
func (s *Synchronizer) StoreEmbedding(ctx context.Context, key string, vector []float32) error {
	if err := s.durable.StoreEmbedding(ctx, key, vector); err != nil {
		return err
	}
	if err := s.cache.StoreEmbedding(ctx, key, vector); err != nil {
		s.warnCacheFailure("store_embedding", err)
	}
	return nil
}

// DeleteEpisode deletes ep from the durable store; on success, it also
// deletes it from the cache, swallowing any cache failure.
func (s *Synchronizer) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	if err := s.durable.DeleteEpisode(ctx, id); err != nil {
		return err
	}
	if err := s.cache.DeleteEpisode(ctx, id); err != nil {
		s.warnCacheFailure("delete_episode", err)
	}
	return nil
}

// SyncEpisodeToCache is the manual cache-recovery path: it reads ep
// from the durable store and force-writes it to the cache, useful after
// a cache outage or a detected divergence.
func (s *Synchronizer) SyncEpisodeToCache(ctx context.Context, id uuid.UUID) error {
	ep, err := s.durable.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	return s.cache.StoreEpisode(ctx, ep)
}

// Durable exposes the underlying durable backend for read paths that
// intentionally bypass the synchronizer.
func (s *Synchronizer) Durable() storage.Backend { return s.durable }

// Cache exposes the underlying cache backend for read paths that
// intentionally bypass the synchronizer.
func (s *Synchronizer) Cache() storage.Backend { return s.cache }
