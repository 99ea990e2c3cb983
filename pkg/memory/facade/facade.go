// Package facade presents the episodic memory engine's single
// cohesive API: begin/log/complete an episode, retrieve relevant past
// context, search and recommend patterns, and manage tags and
// relationships. It composes the storage, retrieval, and learning
// layers behind one entry point.
package facade

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/memory/search"
	"github.com/jordigilh/kubernaut/pkg/memory/spatiotemporal"
	syncpkg "github.com/jordigilh/kubernaut/pkg/memory/sync"
	"github.com/jordigilh/kubernaut/pkg/metrics"
	"github.com/jordigilh/kubernaut/pkg/shared/logging"
	"github.com/jordigilh/kubernaut/pkg/storage/querycache"
)

// Embedder turns text into the vector space patterns and episodes are
// ranked in. Satisfied by pkg/embedding's Provider without importing
// it directly, avoiding a dependency edge the facade doesn't need at
// compile time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Enqueuer accepts a completed episode's id for asynchronous pattern
// extraction. Satisfied by *queue.Queue.
type Enqueuer interface {
	Enqueue(id uuid.UUID)
}

// Config tunes the façade's policies.
type Config struct {
	QualityThreshold float64
	RetrievalWeights search.Config
}

// DefaultConfig requires a quality score of at least 0.4 to enqueue an
// episode for pattern extraction, and the hybrid search combiner's own
// 0.7/0.3 vector/lexical default split.
func DefaultConfig() Config {
	return Config{QualityThreshold: 0.4, RetrievalWeights: search.DefaultConfig()}
}

// Memory is the façade over every storage, retrieval, and learning
// component.
type Memory struct {
	cfg    Config
	sync   *syncpkg.Synchronizer
	index  *spatiotemporal.Index
	cache  querycache.QueryCache
	queue  Enqueuer
	embed  Embedder
	log    *logrus.Entry
	tracer trace.Tracer

	mu       sync.Mutex
	open     map[uuid.UUID]*episode.Episode
	stepBuf  map[uuid.UUID][]episode.ExecutionStep
	rejected map[uuid.UUID]bool
	relGraph *episode.RelationGraph
}

// New composes a Memory façade over its dependencies. cache and queue
// may be nil: a nil cache disables query-result caching and a nil
// queue disables pattern-extraction enqueueing (useful for tests and
// for deployments that run extraction out of process).
func New(cfg Config, sync *syncpkg.Synchronizer, embed Embedder, cache querycache.QueryCache, queue Enqueuer, log *logrus.Logger) *Memory {
	if log == nil {
		log = logrus.New()
	}
	return &Memory{
		cfg:      cfg,
		sync:     sync,
		index:    spatiotemporal.New(),
		cache:    cache,
		queue:    queue,
		embed:    embed,
		log:      log.WithField("component", "memory_facade"),
		tracer:   otel.Tracer("memory_facade"),
		open:     make(map[uuid.UUID]*episode.Episode),
		stepBuf:  make(map[uuid.UUID][]episode.ExecutionStep),
		rejected: make(map[uuid.UUID]bool),
		relGraph: episode.NewRelationGraph(),
	}
}

// startSpan begins an OpenTelemetry span for a façade operation. Callers
// defer span.End() and record the returned error, if any, before
// returning.
func (m *Memory) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, operation)
}

// endSpan closes span, marking it as failed if err is non-nil. Deferred
// with the named return error of the calling method.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (m *Memory) recordRequest(ok bool) {
	if ok {
		metrics.RecordFacadeRequest("ok")
	} else {
		metrics.RecordFacadeRequest("error")
	}
}

func (m *Memory) fields(operation string) logging.Fields {
	return logging.NewFields().Component("memory_facade").Operation(operation)
}
