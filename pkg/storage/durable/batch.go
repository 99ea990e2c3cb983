package durable

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/shared/errutil"
)

// DefaultChunkSize is the number of rows committed per chunk by
// StoreEpisodesBatchProgress.
const DefaultChunkSize = 100

// BatchProgress reports the outcome of one committed chunk.
type BatchProgress struct {
	Chunk     int
	Succeeded int
	Failed    int
}

// StoreEpisodesBatch stores every episode inside a single transaction.
// Any row failure aborts and rolls back the entire batch; the returned
// error names the offending episode id.
func (s *Store) StoreEpisodesBatch(ctx context.Context, episodes []*episode.Episode) error {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		err = errutil.DatabaseError("store_episodes_batch.begin", err)
		s.record(ctx, "store_episodes_batch", start, err)
		return err
	}
	defer tx.Rollback()

	for _, ep := range episodes {
		row, steps, err := toEpisodeRow(ep)
		if err != nil {
			s.record(ctx, "store_episodes_batch", start, err)
			return fmt.Errorf("episode %s: %w", ep.ID, err)
		}
		if _, err := tx.NamedExecContext(ctx, upsertEpisodeSQL, row); err != nil {
			err = errutil.DatabaseError("store_episodes_batch.upsert", err)
			s.record(ctx, "store_episodes_batch", start, err)
			return fmt.Errorf("episode %s: %w", ep.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM episode_steps WHERE episode_id = $1`, ep.ID); err != nil {
			err = errutil.DatabaseError("store_episodes_batch.clear_steps", err)
			s.record(ctx, "store_episodes_batch", start, err)
			return fmt.Errorf("episode %s: %w", ep.ID, err)
		}
		for _, step := range steps {
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO episode_steps (episode_id, sequence, step) VALUES (:episode_id, :sequence, :step)`, step); err != nil {
				err = errutil.DatabaseError("store_episodes_batch.insert_step", err)
				s.record(ctx, "store_episodes_batch", start, err)
				return fmt.Errorf("episode %s: %w", ep.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		err = errutil.DatabaseError("store_episodes_batch.commit", err)
		s.record(ctx, "store_episodes_batch", start, err)
		return err
	}

	s.recordBatch(ctx, "store_episodes_batch", len(episodes), len(episodes), 0)
	s.record(ctx, "store_episodes_batch", start, nil)
	return nil
}

// StoreEpisodesBatchProgress stores episodes in chunks of chunkSize,
// committing each chunk independently and invoking onProgress after it
// commits. Unlike StoreEpisodesBatch, a failed chunk does not roll back
// chunks already committed; it aggregates success/failure counts and
// continues with the next chunk.
func (s *Store) StoreEpisodesBatchProgress(ctx context.Context, episodes []*episode.Episode, chunkSize int, onProgress func(BatchProgress)) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	for i := 0; i < len(episodes); i += chunkSize {
		end := i + chunkSize
		if end > len(episodes) {
			end = len(episodes)
		}
		chunk := episodes[i:end]

		progress := BatchProgress{Chunk: i / chunkSize}
		if err := s.StoreEpisodesBatch(ctx, chunk); err != nil {
			progress.Failed = len(chunk)
		} else {
			progress.Succeeded = len(chunk)
		}

		s.recordBatch(ctx, "store_episodes_batch_progress", len(chunk), progress.Succeeded, progress.Failed)
		if onProgress != nil {
			onProgress(progress)
		}
	}
	return nil
}

// DeleteEpisodesBatch deletes every episode (and its steps) named by
// ids inside a single transaction. Any row failure aborts and rolls
// back the entire batch; the returned error names the offending id.
func (s *Store) DeleteEpisodesBatch(ctx context.Context, ids []uuid.UUID) error {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		err = errutil.DatabaseError("delete_episodes_batch.begin", err)
		s.record(ctx, "delete_episodes_batch", start, err)
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM episode_steps WHERE episode_id = $1`, id); err != nil {
			err = errutil.DatabaseError("delete_episodes_batch.steps", err)
			s.record(ctx, "delete_episodes_batch", start, err)
			return fmt.Errorf("episode %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE id = $1`, id); err != nil {
			err = errutil.DatabaseError("delete_episodes_batch", err)
			s.record(ctx, "delete_episodes_batch", start, err)
			return fmt.Errorf("episode %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		err = errutil.DatabaseError("delete_episodes_batch.commit", err)
		s.record(ctx, "delete_episodes_batch", start, err)
		return err
	}

	s.recordBatch(ctx, "delete_episodes_batch", len(ids), len(ids), 0)
	s.record(ctx, "delete_episodes_batch", start, nil)
	return nil
}

// UpdatePatternsBatch upserts every pattern inside a single
// transaction. Any row failure aborts and rolls back the entire batch;
// the returned error names the offending pattern id.
func (s *Store) UpdatePatternsBatch(ctx context.Context, patterns []*episode.Pattern) error {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		err = errutil.DatabaseError("update_patterns_batch.begin", err)
		s.record(ctx, "update_patterns_batch", start, err)
		return err
	}
	defer tx.Rollback()

	for _, p := range patterns {
		row, err := toPatternRow(p)
		if err != nil {
			s.record(ctx, "update_patterns_batch", start, err)
			return fmt.Errorf("pattern %s: %w", p.ID, err)
		}
		if _, err := tx.NamedExecContext(ctx, upsertPatternSQL, row); err != nil {
			err = errutil.DatabaseError("update_patterns_batch.upsert", err)
			s.record(ctx, "update_patterns_batch", start, err)
			return fmt.Errorf("pattern %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		err = errutil.DatabaseError("update_patterns_batch.commit", err)
		s.record(ctx, "update_patterns_batch", start, err)
		return err
	}

	s.recordBatch(ctx, "update_patterns_batch", len(patterns), len(patterns), 0)
	s.record(ctx, "update_patterns_batch", start, nil)
	return nil
}

// DeletePatternsBatch deletes every pattern named by ids inside a
// single transaction. Any row failure aborts and rolls back the entire
// batch; the returned error names the offending id.
func (s *Store) DeletePatternsBatch(ctx context.Context, ids []uuid.UUID) error {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		err = errutil.DatabaseError("delete_patterns_batch.begin", err)
		s.record(ctx, "delete_patterns_batch", start, err)
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM patterns WHERE id = $1`, id); err != nil {
			err = errutil.DatabaseError("delete_patterns_batch", err)
			s.record(ctx, "delete_patterns_batch", start, err)
			return fmt.Errorf("pattern %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		err = errutil.DatabaseError("delete_patterns_batch.commit", err)
		s.record(ctx, "delete_patterns_batch", start, err)
		return err
	}

	s.recordBatch(ctx, "delete_patterns_batch", len(ids), len(ids), 0)
	s.record(ctx, "delete_patterns_batch", start, nil)
	return nil
}

// DeleteHeuristicsBatch deletes every heuristic named by ids inside a
// single transaction. Any row failure aborts and rolls back the entire
// batch; the returned error names the offending id.
func (s *Store) DeleteHeuristicsBatch(ctx context.Context, ids []uuid.UUID) error {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		err = errutil.DatabaseError("delete_heuristics_batch.begin", err)
		s.record(ctx, "delete_heuristics_batch", start, err)
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM heuristics WHERE id = $1`, id); err != nil {
			err = errutil.DatabaseError("delete_heuristics_batch", err)
			s.record(ctx, "delete_heuristics_batch", start, err)
			return fmt.Errorf("heuristic %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		err = errutil.DatabaseError("delete_heuristics_batch.commit", err)
		s.record(ctx, "delete_heuristics_batch", start, err)
		return err
	}

	s.recordBatch(ctx, "delete_heuristics_batch", len(ids), len(ids), 0)
	s.record(ctx, "delete_heuristics_batch", start, nil)
	return nil
}

const upsertPatternSQL = `
	INSERT INTO patterns (id, kind, body) VALUES (:id, :kind, :body)
	ON CONFLICT (id) DO UPDATE SET kind = EXCLUDED.kind, body = EXCLUDED.body`

const upsertEpisodeSQL = `
	INSERT INTO episodes (id, task_type, task_description, context, outcome, reward,
		reflection, pattern_ids, heuristic_ids, metadata, tags, relations, start_time, end_time)
	VALUES (:id, :task_type, :task_description, :context, :outcome, :reward,
		:reflection, :pattern_ids, :heuristic_ids, :metadata, :tags, :relations, :start_time, :end_time)
	ON CONFLICT (id) DO UPDATE SET
		task_type = EXCLUDED.task_type, task_description = EXCLUDED.task_description,
		context = EXCLUDED.context, outcome = EXCLUDED.outcome, reward = EXCLUDED.reward,
		reflection = EXCLUDED.reflection, pattern_ids = EXCLUDED.pattern_ids,
		heuristic_ids = EXCLUDED.heuristic_ids, metadata = EXCLUDED.metadata,
		tags = EXCLUDED.tags, relations = EXCLUDED.relations,
		start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time`
