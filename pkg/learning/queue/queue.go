// Package queue implements the pattern-extraction queue (C12): a FIFO
// of episode ids drained by a pool of workers that extract patterns
// from completed episodes and persist them through the write-through
// synchronizer.
package queue

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/metrics"
	"github.com/jordigilh/kubernaut/pkg/shared/logging"
)

// Extractor turns a completed episode into the patterns it exhibits.
// Implemented by pkg/learning/scoring in the real wiring; a test double
// can supply anything satisfying this shape.
type Extractor interface {
	Extract(ctx context.Context, ep *episode.Episode) ([]*episode.Pattern, error)
}

// Config controls the queue's worker pool and backpressure behavior.
type Config struct {
	Workers      int
	MaxQueueSize int
	PollInterval time.Duration
}

// DefaultConfig returns Workers = runtime.NumCPU(), a soft cap of 1000,
// and a 50ms poll interval.
func DefaultConfig() Config {
	return Config{
		Workers:      runtime.NumCPU(),
		MaxQueueSize: 1000,
		PollInterval: 50 * time.Millisecond,
	}
}

// Stats is an immutable snapshot of the queue's counters.
type Stats struct {
	TotalEnqueued  uint64
	TotalProcessed uint64
	TotalFailed    uint64
	ActiveWorkers  int32
	QueueSize      int
}

// Fetcher retrieves the episode for an id before extraction. Backed by
// the durable store in the real wiring (reads bypass the synchronizer
// per §4.8).
type Fetcher interface {
	GetEpisode(ctx context.Context, id uuid.UUID) (*episode.Episode, error)
}

// Persister writes extracted patterns through the synchronizer.
type Persister interface {
	StorePattern(ctx context.Context, p *episode.Pattern) error
}

// Queue is a FIFO of episode ids drained by a fixed worker pool.
type Queue struct {
	cfg       Config
	fetcher   Fetcher
	persister Persister
	extractor Extractor
	log       *logrus.Entry

	mu    sync.Mutex
	items []uuid.UUID

	shutdown atomic.Bool
	group    *errgroup.Group

	totalEnqueued  atomic.Uint64
	totalProcessed atomic.Uint64
	totalFailed    atomic.Uint64
	activeWorkers  atomic.Int32
}

// New constructs a Queue and starts its worker pool.
func New(cfg Config, fetcher Fetcher, persister Persister, extractor Extractor, log *logrus.Logger) *Queue {
	if log == nil {
		log = logrus.New()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}

	group := &errgroup.Group{}
	q := &Queue{
		cfg:       cfg,
		fetcher:   fetcher,
		persister: persister,
		extractor: extractor,
		log:       log.WithField("component", "pattern_extraction_queue"),
		group:     group,
	}

	for i := 0; i < cfg.Workers; i++ {
		group.Go(q.worker)
	}
	return q
}

// Enqueue appends id to the queue. Backpressure is advisory: at or
// above MaxQueueSize the enqueue still succeeds but logs a warning —
// there is no hard cap, per the resolved Open Question this
// implementation follows (see DESIGN.md).
func (q *Queue) Enqueue(id uuid.UUID) {
	q.mu.Lock()
	q.items = append(q.items, id)
	size := len(q.items)
	q.mu.Unlock()

	q.totalEnqueued.Add(1)
	metrics.SetQueuePending(float64(size))

	if size >= q.cfg.MaxQueueSize {
		q.log.WithFields(logging.NewFields().
			Component("pattern_extraction_queue").
			Operation("enqueue").
			Count(size).ToLogrus()).
			Warn("pattern extraction queue at or above its soft cap, accepting anyway")
	}
}

func (q *Queue) popFront() (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return uuid.UUID{}, false
	}
	id := q.items[0]
	q.items = q.items[1:]
	metrics.SetQueuePending(float64(len(q.items)))
	return id, true
}

func (q *Queue) worker() error {
	for {
		if q.shutdown.Load() {
			return nil
		}

		id, ok := q.popFront()
		if !ok {
			time.Sleep(q.cfg.PollInterval)
			continue
		}

		q.activeWorkers.Add(1)
		metrics.IncrementActiveWorkers()
		q.process(id)
		q.activeWorkers.Add(-1)
		metrics.DecrementActiveWorkers()
	}
}

func (q *Queue) process(id uuid.UUID) {
	ctx := context.Background()
	timer := metrics.NewTimer()

	ep, err := q.fetcher.GetEpisode(ctx, id)
	if err != nil {
		q.fail(id, "pattern_extraction", "fetch episode", err)
		return
	}
	if !ep.IsComplete() {
		q.fail(id, "pattern_extraction", "extract patterns",
			apperrors.NewInvalidStateError("episode is not complete"))
		return
	}

	patterns, err := q.extractor.Extract(ctx, ep)
	if err != nil {
		q.fail(id, "pattern_extraction", "extract patterns", err)
		return
	}

	for _, p := range patterns {
		if err := q.persister.StorePattern(ctx, p); err != nil {
			q.fail(id, string(p.Kind), "persist pattern", err)
			continue
		}
		timer.RecordPatternExtraction(string(p.Kind))
	}

	q.totalProcessed.Add(1)
}

func (q *Queue) fail(id uuid.UUID, kind, stage string, err error) {
	q.totalFailed.Add(1)
	metrics.RecordPatternExtractionError(kind, string(apperrors.GetType(err)))
	q.log.WithFields(logging.NewFields().
		Component("pattern_extraction_queue").
		Operation(stage).
		Custom("episode_id", id.String()).
		Error(err).ToLogrus()).
		Warn("pattern extraction worker failed on an episode")
}

// Stats returns an immutable snapshot of the queue's counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	size := len(q.items)
	q.mu.Unlock()

	return Stats{
		TotalEnqueued:  q.totalEnqueued.Load(),
		TotalProcessed: q.totalProcessed.Load(),
		TotalFailed:    q.totalFailed.Load(),
		ActiveWorkers:  q.activeWorkers.Load(),
		QueueSize:      size,
	}
}

// Shutdown flips the shutdown flag; workers exit after finishing
// whatever episode they are currently processing.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// WaitUntilEmpty polls until the queue's size hits zero, the context is
// cancelled, or timeout elapses, whichever comes first.
func (q *Queue) WaitUntilEmpty(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if q.Stats().QueueSize == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return context.DeadlineExceeded
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(q.cfg.PollInterval):
		}
	}
}

// Wait blocks until every worker goroutine has exited, used in tests
// after Shutdown to confirm clean termination.
func (q *Queue) Wait() error {
	return q.group.Wait()
}
