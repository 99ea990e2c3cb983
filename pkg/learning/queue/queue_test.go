package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

type fakeFetcher struct {
	mu       sync.Mutex
	episodes map[uuid.UUID]*episode.Episode
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{episodes: make(map[uuid.UUID]*episode.Episode)}
}

func (f *fakeFetcher) put(ep *episode.Episode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.episodes[ep.ID] = ep
}

func (f *fakeFetcher) GetEpisode(ctx context.Context, id uuid.UUID) (*episode.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ep, ok := f.episodes[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("episode")
	}
	return ep, nil
}

type fakePersister struct {
	mu       sync.Mutex
	patterns []*episode.Pattern
}

func (p *fakePersister) StorePattern(ctx context.Context, pat *episode.Pattern) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patterns = append(p.patterns, pat)
	return nil
}

func (p *fakePersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.patterns)
}

type fakeExtractor struct {
	patterns []*episode.Pattern
	err      error
}

func (f *fakeExtractor) Extract(ctx context.Context, ep *episode.Episode) ([]*episode.Pattern, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.patterns, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return log
}

func completeEpisode() *episode.Episode {
	ep := episode.Begin(episode.TaskTypeDebugging, "investigate timeout", episode.TaskContext{Domain: "api"})
	_ = ep.Complete(episode.Outcome{Kind: episode.OutcomeSuccess}, time.Now().UTC())
	return ep
}

func TestQueueProcessesEnqueuedEpisode(t *testing.T) {
	fetcher := newFakeFetcher()
	ep := completeEpisode()
	fetcher.put(ep)

	persister := &fakePersister{}
	extractor := &fakeExtractor{patterns: []*episode.Pattern{{ID: uuid.New(), Kind: episode.PatternToolSequence}}}

	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.PollInterval = 5 * time.Millisecond
	q := New(cfg, fetcher, persister, extractor, testLogger())
	defer q.Shutdown()

	q.Enqueue(ep.ID)

	deadline := time.Now().Add(time.Second)
	for persister.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if persister.count() != 1 {
		t.Fatalf("expected 1 persisted pattern, got %d", persister.count())
	}
	stats := q.Stats()
	if stats.TotalProcessed != 1 {
		t.Fatalf("expected TotalProcessed=1, got %d", stats.TotalProcessed)
	}
}

func TestQueueFailsIncompleteEpisode(t *testing.T) {
	fetcher := newFakeFetcher()
	ep := episode.Begin(episode.TaskTypeDebugging, "not done yet", episode.TaskContext{})
	fetcher.put(ep)

	persister := &fakePersister{}
	extractor := &fakeExtractor{}

	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.PollInterval = 5 * time.Millisecond
	q := New(cfg, fetcher, persister, extractor, testLogger())
	defer q.Shutdown()

	q.Enqueue(ep.ID)

	deadline := time.Now().Add(time.Second)
	for q.Stats().TotalFailed == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if q.Stats().TotalFailed != 1 {
		t.Fatalf("expected TotalFailed=1, got %d", q.Stats().TotalFailed)
	}
	if persister.count() != 0 {
		t.Fatalf("expected no patterns persisted for an incomplete episode, got %d", persister.count())
	}
}

func TestQueueEnqueueAboveSoftCapStillAccepts(t *testing.T) {
	fetcher := newFakeFetcher()
	persister := &fakePersister{}
	extractor := &fakeExtractor{}

	cfg := DefaultConfig()
	cfg.Workers = 0 // falls back to NumCPU workers, kept asleep by the hour-long poll; we only test Enqueue's acceptance
	cfg.MaxQueueSize = 2
	cfg.PollInterval = time.Hour
	q := New(cfg, fetcher, persister, extractor, testLogger())
	defer q.Shutdown()

	q.Enqueue(uuid.New())
	q.Enqueue(uuid.New())
	q.Enqueue(uuid.New())

	if got := q.Stats().QueueSize; got != 3 {
		t.Fatalf("expected all 3 enqueues to be accepted past the soft cap, got queue size %d", got)
	}
	if got := q.Stats().TotalEnqueued; got != 3 {
		t.Fatalf("expected TotalEnqueued=3, got %d", got)
	}
}

func TestWaitUntilEmptyReturnsOnceQueueDrains(t *testing.T) {
	fetcher := newFakeFetcher()
	ep := completeEpisode()
	fetcher.put(ep)

	persister := &fakePersister{}
	extractor := &fakeExtractor{patterns: []*episode.Pattern{{ID: uuid.New(), Kind: episode.PatternDecisionPoint}}}

	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.PollInterval = 5 * time.Millisecond
	q := New(cfg, fetcher, persister, extractor, testLogger())
	defer q.Shutdown()

	q.Enqueue(ep.ID)

	if err := q.WaitUntilEmpty(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitUntilEmpty error: %v", err)
	}
}

func TestShutdownStopsWorkers(t *testing.T) {
	fetcher := newFakeFetcher()
	persister := &fakePersister{}
	extractor := &fakeExtractor{}

	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.PollInterval = 5 * time.Millisecond
	q := New(cfg, fetcher, persister, extractor, testLogger())

	q.Shutdown()

	done := make(chan struct{})
	go func() {
		_ = q.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected all workers to exit after Shutdown")
	}
}
