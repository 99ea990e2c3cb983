// Package durable implements the Postgres-backed storage.Backend (C2):
// one table per entity kind, goose-managed schema, zstd/gzip/lz4
// compression for oversized sub-object payloads, both all-or-nothing
// and progress-chunked batch writers, and an OpenTelemetry span per
// operation recorded alongside its metrics and log line.
package durable

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/metrics"
	"github.com/jordigilh/kubernaut/pkg/shared/errutil"
	"github.com/jordigilh/kubernaut/pkg/shared/logging"
	"github.com/jordigilh/kubernaut/pkg/storage"
)

// Store is the Postgres-backed durable storage.Backend.
type Store struct {
	db     *sqlx.DB
	log    *logrus.Entry
	tracer trace.Tracer
}

var _ storage.Backend = (*Store)(nil)

// Open connects to dsn (a Postgres connection string) via the pgx
// stdlib driver, runs pending migrations, and returns a ready Store.
func Open(ctx context.Context, dsn string, log *logrus.Logger) (*Store, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errutil.DatabaseError("open", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errutil.DatabaseError("ping", err)
	}
	if err := Migrate(sqlDB); err != nil {
		return nil, errutil.DatabaseError("migrate", err)
	}
	return New(sqlx.NewDb(sqlDB, "pgx"), log), nil
}

// New wraps an already-connected sqlx.DB. Exposed so tests can supply a
// go-sqlmock-backed *sqlx.DB without a live Postgres.
func New(db *sqlx.DB, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{db: db, log: log.WithField("component", "durable_store"), tracer: otel.Tracer("durable_store")}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) record(ctx context.Context, operation string, start time.Time, err error) {
	duration := time.Since(start)
	_, span := s.tracer.Start(ctx, operation, trace.WithTimestamp(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(start.Add(duration)))

	metrics.RecordStorageOperation("durable", operation)
	fields := logging.NewFields().Component("durable_store").Operation(operation).Duration(duration)
	if err != nil {
		metrics.RecordStorageOperationError("durable", operation)
		s.log.WithFields(fields.Error(err).ToLogrus()).Warn("durable store operation failed")
	} else {
		s.log.WithFields(fields.ToLogrus()).Debug("durable store operation")
	}
	s.recordOperation(ctx, operation, resourceForOperation(operation), err == nil, duration)
}

// StoreEpisode implements storage.Backend.
func (s *Store) StoreEpisode(ctx context.Context, ep *episode.Episode) error {
	start := time.Now()
	row, steps, err := toEpisodeRow(ep)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		err = errutil.DatabaseError("begin transaction", err)
		s.record(ctx, "store_episode", start, err)
		return err
	}
	defer tx.Rollback()

	const upsertEpisode = `
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
	if _, err := tx.NamedExecContext(ctx, upsertEpisode, row); err != nil {
		err = errutil.DatabaseError("store_episode", err)
		s.record(ctx, "store_episode", start, err)
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM episode_steps WHERE episode_id = $1`, ep.ID); err != nil {
		err = errutil.DatabaseError("store_episode.clear_steps", err)
		s.record(ctx, "store_episode", start, err)
		return err
	}
	for _, step := range steps {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO episode_steps (episode_id, sequence, step) VALUES (:episode_id, :sequence, :step)`, step); err != nil {
			err = errutil.DatabaseError("store_episode.insert_step", err)
			s.record(ctx, "store_episode", start, err)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		err = errutil.DatabaseError("commit", err)
		s.record(ctx, "store_episode", start, err)
		return err
	}

	s.record(ctx, "store_episode", start, nil)
	return nil
}

// GetEpisode implements storage.Backend.
func (s *Store) GetEpisode(ctx context.Context, id uuid.UUID) (*episode.Episode, error) {
	start := time.Now()
	var row episodeRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM episodes WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		s.record(ctx, "get_episode", start, nil)
		return nil, apperrors.NewNotFoundError("episode")
	}
	if err != nil {
		err = errutil.DatabaseError("get_episode", err)
		s.record(ctx, "get_episode", start, err)
		return nil, err
	}

	var steps []stepRow
	if err := s.db.SelectContext(ctx, &steps,
		`SELECT * FROM episode_steps WHERE episode_id = $1 ORDER BY sequence`, id); err != nil {
		err = errutil.DatabaseError("get_episode.steps", err)
		s.record(ctx, "get_episode", start, err)
		return nil, err
	}

	ep, err := fromEpisodeRow(row, steps)
	s.record(ctx, "get_episode", start, err)
	return ep, err
}

// QueryEpisodesSince implements storage.Backend.
func (s *Store) QueryEpisodesSince(ctx context.Context, since time.Time) ([]*episode.Episode, error) {
	start := time.Now()
	var rows []episodeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM episodes WHERE start_time >= $1 ORDER BY start_time`, since); err != nil {
		err = errutil.DatabaseError("query_episodes_since", err)
		s.record(ctx, "query_episodes_since", start, err)
		return nil, err
	}

	episodes := make([]*episode.Episode, 0, len(rows))
	for _, row := range rows {
		var steps []stepRow
		if err := s.db.SelectContext(ctx, &steps,
			`SELECT * FROM episode_steps WHERE episode_id = $1 ORDER BY sequence`, row.ID); err != nil {
			err = errutil.DatabaseError("query_episodes_since.steps", err)
			s.record(ctx, "query_episodes_since", start, err)
			return nil, err
		}
		ep, err := fromEpisodeRow(row, steps)
		if err != nil {
			s.record(ctx, "query_episodes_since", start, err)
			return nil, err
		}
		episodes = append(episodes, ep)
	}

	s.record(ctx, "query_episodes_since", start, nil)
	return episodes, nil
}

// DeleteEpisode implements storage.Backend.
func (s *Store) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = $1`, id)
	if err != nil {
		err = errutil.DatabaseError("delete_episode", err)
	}
	s.record(ctx, "delete_episode", start, err)
	return err
}

// StorePattern implements storage.Backend.
func (s *Store) StorePattern(ctx context.Context, p *episode.Pattern) error {
	start := time.Now()
	row, err := toPatternRow(p)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, upsertPatternSQL, row)
	if err != nil {
		err = errutil.DatabaseError("store_pattern", err)
	}
	s.record(ctx, "store_pattern", start, err)
	return err
}

// GetPattern implements storage.Backend.
func (s *Store) GetPattern(ctx context.Context, id uuid.UUID) (*episode.Pattern, error) {
	start := time.Now()
	var row patternRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM patterns WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		s.record(ctx, "get_pattern", start, nil)
		return nil, apperrors.NewNotFoundError("pattern")
	}
	if err != nil {
		err = errutil.DatabaseError("get_pattern", err)
		s.record(ctx, "get_pattern", start, err)
		return nil, err
	}
	p, err := fromPatternRow(row)
	s.record(ctx, "get_pattern", start, err)
	return p, err
}

// DeletePattern implements storage.Backend.
func (s *Store) DeletePattern(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM patterns WHERE id = $1`, id)
	if err != nil {
		err = errutil.DatabaseError("delete_pattern", err)
	}
	s.record(ctx, "delete_pattern", start, err)
	return err
}

// StoreHeuristic implements storage.Backend.
func (s *Store) StoreHeuristic(ctx context.Context, h *episode.Heuristic) error {
	start := time.Now()
	row, err := toHeuristicRow(h)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO heuristics (id, body, updated_at) VALUES (:id, :body, :updated_at)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`, row)
	if err != nil {
		err = errutil.DatabaseError("store_heuristic", err)
	}
	s.record(ctx, "store_heuristic", start, err)
	return err
}

// GetHeuristic implements storage.Backend.
func (s *Store) GetHeuristic(ctx context.Context, id uuid.UUID) (*episode.Heuristic, error) {
	start := time.Now()
	var row heuristicRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM heuristics WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		s.record(ctx, "get_heuristic", start, nil)
		return nil, apperrors.NewNotFoundError("heuristic")
	}
	if err != nil {
		err = errutil.DatabaseError("get_heuristic", err)
		s.record(ctx, "get_heuristic", start, err)
		return nil, err
	}
	h, err := fromHeuristicRow(row)
	s.record(ctx, "get_heuristic", start, err)
	return h, err
}

// DeleteHeuristic implements storage.Backend.
func (s *Store) DeleteHeuristic(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM heuristics WHERE id = $1`, id)
	if err != nil {
		err = errutil.DatabaseError("delete_heuristic", err)
	}
	s.record(ctx, "delete_heuristic", start, err)
	return err
}

// StoreEmbedding implements storage.Backend.
func (s *Store) StoreEmbedding(ctx context.Context, key string, vector []float32) error {
	start := time.Now()
	row, err := toEmbeddingRow(key, vector)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO embeddings (key, vector, created_at) VALUES (:key, :vector, :created_at)
		ON CONFLICT (key) DO UPDATE SET vector = EXCLUDED.vector, created_at = EXCLUDED.created_at`, row)
	if err != nil {
		err = errutil.DatabaseError("store_embedding", err)
	}
	s.record(ctx, "store_embedding", start, err)
	return err
}

// GetEmbedding implements storage.Backend.
func (s *Store) GetEmbedding(ctx context.Context, key string) (*episode.Embedding, error) {
	start := time.Now()
	var row embeddingRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM embeddings WHERE key = $1`, key)
	if err == sql.ErrNoRows {
		s.record(ctx, "get_embedding", start, nil)
		return nil, apperrors.NewNotFoundError("embedding")
	}
	if err != nil {
		err = errutil.DatabaseError("get_embedding", err)
		s.record(ctx, "get_embedding", start, err)
		return nil, err
	}
	emb, err := fromEmbeddingRow(row)
	s.record(ctx, "get_embedding", start, err)
	return emb, err
}

// DeleteEmbedding implements storage.Backend.
func (s *Store) DeleteEmbedding(ctx context.Context, key string) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE key = $1`, key)
	if err != nil {
		err = errutil.DatabaseError("delete_embedding", err)
	}
	s.record(ctx, "delete_embedding", start, err)
	return err
}

// Ping implements storage.Backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
