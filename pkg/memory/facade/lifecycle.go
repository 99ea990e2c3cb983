package facade

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// BeginEpisode starts a new episode and persists its initial state.
func (m *Memory) BeginEpisode(ctx context.Context, description string, taskContext episode.TaskContext, taskType episode.TaskType) (id uuid.UUID, err error) {
	ctx, span := m.startSpan(ctx, "begin_episode")
	defer func() { endSpan(span, err) }()

	ep := episode.Begin(taskType, description, taskContext)

	if err := m.sync.StoreEpisode(ctx, ep); err != nil {
		m.recordRequest(false)
		return uuid.UUID{}, err
	}

	m.mu.Lock()
	m.open[ep.ID] = ep
	m.index.Insert(ep)
	m.mu.Unlock()

	m.recordRequest(true)
	return ep.ID, nil
}

// LogStep buffers an execution step against id in memory; it is not
// persisted until CompleteEpisode flushes the buffer. Idempotent by
// (id, step.Sequence): a call repeating a previously buffered sequence
// number replaces that entry rather than appending a duplicate, so a
// logical retry never trips AppendStep's monotonic-sequence check at
// completion time.
func (m *Memory) LogStep(id uuid.UUID, step episode.ExecutionStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.open[id]; !ok {
		return apperrors.NewNotFoundError("episode")
	}
	buf := m.stepBuf[id]
	for i, existing := range buf {
		if existing.Sequence == step.Sequence {
			buf[i] = step
			return nil
		}
	}
	m.stepBuf[id] = append(buf, step)
	return nil
}

// CompleteEpisode flushes id's buffered steps, attaches outcome,
// computes the episode's quality score, persists the final state, and
// — if the score clears Config.QualityThreshold — enqueues it for
// asynchronous pattern extraction.
func (m *Memory) CompleteEpisode(ctx context.Context, id uuid.UUID, outcome episode.Outcome) (err error) {
	ctx, span := m.startSpan(ctx, "complete_episode")
	defer func() { endSpan(span, err) }()

	m.mu.Lock()
	ep, ok := m.open[id]
	m.mu.Unlock()
	if !ok {
		return m.completeEpisodeNotOpenError(ctx, id)
	}

	m.mu.Lock()
	steps := m.stepBuf[id]
	delete(m.stepBuf, id)
	m.mu.Unlock()

	for _, step := range steps {
		if err := ep.AppendStep(step); err != nil {
			return err
		}
	}
	if err := ep.Complete(outcome, time.Now().UTC()); err != nil {
		return err
	}

	score := qualityScore(ep)
	accepted := score >= m.cfg.QualityThreshold

	if err := m.sync.StoreEpisode(ctx, ep); err != nil {
		m.recordRequest(false)
		return err
	}

	m.mu.Lock()
	delete(m.open, id)
	m.index.Insert(ep)
	if !accepted {
		m.rejected[id] = true
	}
	m.mu.Unlock()

	if accepted && m.queue != nil {
		m.queue.Enqueue(id)
	} else if !accepted {
		m.log.WithFields(m.fields("complete_episode").
			Custom("episode_id", id.String()).
			Custom("quality_score", score).ToLogrus()).
			Info("episode quality below threshold, recorded without pattern extraction")
	}

	m.recordRequest(true)
	return nil
}

// completeEpisodeNotOpenError distinguishes, for an id absent from
// m.open, a genuinely unknown episode (NotFound) from one that has
// already run through CompleteEpisode once (InvalidState, per §6.6's
// AlreadyComplete guarantee).
func (m *Memory) completeEpisodeNotOpenError(ctx context.Context, id uuid.UUID) error {
	ep, err := m.GetEpisode(ctx, id)
	if err != nil {
		return apperrors.NewNotFoundError("episode")
	}
	if ep.IsComplete() {
		return apperrors.NewInvalidStateError("episode is already complete")
	}
	return apperrors.NewNotFoundError("episode")
}

// GetEpisode retrieves an episode by id, preferring the cache backend
// and falling back to the durable store.
func (m *Memory) GetEpisode(ctx context.Context, id uuid.UUID) (ep *episode.Episode, err error) {
	ctx, span := m.startSpan(ctx, "get_episode")
	defer func() { endSpan(span, err) }()

	ep, err = m.sync.Cache().GetEpisode(ctx, id)
	if err == nil {
		return ep, nil
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		m.log.WithFields(m.fields("get_episode").Error(err).ToLogrus()).Warn("cache read failed, falling back to durable store")
	}
	return m.sync.Durable().GetEpisode(ctx, id)
}

// ArchiveEpisode marks an episode archived and persists the change.
func (m *Memory) ArchiveEpisode(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := m.startSpan(ctx, "archive_episode")
	defer func() { endSpan(span, err) }()

	ep, err := m.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	ep.Archive(time.Now().UTC())
	return m.sync.StoreEpisode(ctx, ep)
}

// IsRejected reports whether id was recorded but never enqueued for
// pattern extraction because it fell below the quality threshold.
func (m *Memory) IsRejected(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[id]
}
