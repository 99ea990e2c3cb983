package facade

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	syncpkg "github.com/jordigilh/kubernaut/pkg/memory/sync"
)

// testBackend is a fully functional in-memory storage.Backend, unlike
// the synchronizer package's own fake which stubs QueryEpisodesSince.
type testBackend struct {
	mu         sync.Mutex
	episodes   map[uuid.UUID]*episode.Episode
	patterns   map[uuid.UUID]*episode.Pattern
	embeddings map[string][]float32
}

func newTestBackend() *testBackend {
	return &testBackend{
		episodes:   make(map[uuid.UUID]*episode.Episode),
		patterns:   make(map[uuid.UUID]*episode.Pattern),
		embeddings: make(map[string][]float32),
	}
}

func (b *testBackend) StoreEpisode(ctx context.Context, ep *episode.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.episodes[ep.ID] = ep
	return nil
}

func (b *testBackend) GetEpisode(ctx context.Context, id uuid.UUID) (*episode.Episode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ep, ok := b.episodes[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("episode")
	}
	return ep, nil
}

func (b *testBackend) QueryEpisodesSince(ctx context.Context, since time.Time) ([]*episode.Episode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*episode.Episode
	for _, ep := range b.episodes {
		if !ep.StartTime.Before(since) {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (b *testBackend) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.episodes, id)
	return nil
}

func (b *testBackend) StorePattern(ctx context.Context, p *episode.Pattern) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.patterns[p.ID] = p
	return nil
}

func (b *testBackend) GetPattern(ctx context.Context, id uuid.UUID) (*episode.Pattern, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.patterns[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("pattern")
	}
	return p, nil
}

func (b *testBackend) DeletePattern(ctx context.Context, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.patterns, id)
	return nil
}

func (b *testBackend) StoreHeuristic(ctx context.Context, h *episode.Heuristic) error { return nil }
func (b *testBackend) GetHeuristic(ctx context.Context, id uuid.UUID) (*episode.Heuristic, error) {
	return nil, apperrors.NewNotFoundError("heuristic")
}
func (b *testBackend) DeleteHeuristic(ctx context.Context, id uuid.UUID) error { return nil }

func (b *testBackend) StoreEmbedding(ctx context.Context, key string, vector []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.embeddings[key] = vector
	return nil
}

func (b *testBackend) GetEmbedding(ctx context.Context, key string) (*episode.Embedding, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.embeddings[key]
	if !ok {
		return nil, apperrors.NewNotFoundError("embedding")
	}
	return &episode.Embedding{Key: key, Vector: v}, nil
}

func (b *testBackend) DeleteEmbedding(ctx context.Context, key string) error { return nil }
func (b *testBackend) Ping(ctx context.Context) error                       { return nil }

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubEnqueuer struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
}

func (e *stubEnqueuer) Enqueue(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enqueued = append(e.enqueued, id)
}

func newTestMemory() (*Memory, *stubEnqueuer) {
	durable := newTestBackend()
	cache := newTestBackend()
	sync := syncpkg.New(durable, cache, nil)
	enqueuer := &stubEnqueuer{}
	m := New(DefaultConfig(), sync, stubEmbedder{}, nil, enqueuer, nil)
	return m, enqueuer
}

func richContext() episode.TaskContext {
	return episode.TaskContext{Domain: "kubernetes", Language: "go", Framework: "controller-runtime", Complexity: episode.ComplexityModerate}
}

func fiveSteps() []episode.ExecutionStep {
	steps := make([]episode.ExecutionStep, 0, 5)
	tools := []string{"kubectl", "grep", "kubectl", "helm", "kubectl"}
	for i, tool := range tools {
		steps = append(steps, episode.ExecutionStep{
			Sequence: i,
			Tool:     tool,
			Result:   &episode.StepResult{Kind: episode.StepResultSuccess},
		})
	}
	return steps
}

func TestBeginLogCompleteEpisodeAboveThresholdEnqueues(t *testing.T) {
	m, enqueuer := newTestMemory()
	ctx := context.Background()

	id, err := m.BeginEpisode(ctx, "roll out a canary deployment", richContext(), episode.TaskType("deployment"))
	if err != nil {
		t.Fatalf("BeginEpisode: %v", err)
	}

	for _, step := range fiveSteps() {
		if err := m.LogStep(id, step); err != nil {
			t.Fatalf("LogStep: %v", err)
		}
	}

	outcome := episode.Outcome{Kind: episode.OutcomeSuccess}
	if err := m.CompleteEpisode(ctx, id, outcome); err != nil {
		t.Fatalf("CompleteEpisode: %v", err)
	}

	if m.IsRejected(id) {
		t.Fatal("expected a well-formed episode to clear the quality threshold")
	}

	enqueuer.mu.Lock()
	defer enqueuer.mu.Unlock()
	if len(enqueuer.enqueued) != 1 || enqueuer.enqueued[0] != id {
		t.Fatalf("expected the episode to be enqueued for pattern extraction, got %v", enqueuer.enqueued)
	}
}

func TestCompleteEpisodeBelowThresholdIsRejectedNotEnqueued(t *testing.T) {
	m, enqueuer := newTestMemory()
	ctx := context.Background()

	id, err := m.BeginEpisode(ctx, "quick check", episode.TaskContext{}, episode.TaskType("investigation"))
	if err != nil {
		t.Fatalf("BeginEpisode: %v", err)
	}

	outcome := episode.Outcome{Kind: episode.OutcomeFailure}
	if err := m.CompleteEpisode(ctx, id, outcome); err != nil {
		t.Fatalf("CompleteEpisode: %v", err)
	}

	if !m.IsRejected(id) {
		t.Fatal("expected a sparse episode to fall below the quality threshold")
	}

	enqueuer.mu.Lock()
	defer enqueuer.mu.Unlock()
	if len(enqueuer.enqueued) != 0 {
		t.Fatalf("expected no pattern-extraction enqueue, got %v", enqueuer.enqueued)
	}
}

func TestLogStepRetryWithSameSequenceReplacesBufferedStep(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	id, err := m.BeginEpisode(ctx, "retry a flaky step", richContext(), episode.TaskType("deployment"))
	if err != nil {
		t.Fatalf("BeginEpisode: %v", err)
	}

	step := episode.ExecutionStep{Sequence: 0, Tool: "kubectl", Result: &episode.StepResult{Kind: episode.StepResultSuccess}}
	if err := m.LogStep(id, step); err != nil {
		t.Fatalf("LogStep: %v", err)
	}
	if err := m.LogStep(id, step); err != nil {
		t.Fatalf("LogStep retry: %v", err)
	}

	if err := m.CompleteEpisode(ctx, id, episode.Outcome{Kind: episode.OutcomeSuccess}); err != nil {
		t.Fatalf("CompleteEpisode: %v", err)
	}

	got, err := m.GetEpisode(ctx, id)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if len(got.Steps) != 1 {
		t.Fatalf("expected a retried step to replace, not duplicate, the buffered entry; got %d steps", len(got.Steps))
	}
}

func TestCompleteEpisodeOnAlreadyCompleteReturnsInvalidState(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	id, _ := m.BeginEpisode(ctx, "task", richContext(), episode.TaskType("deployment"))
	outcome := episode.Outcome{Kind: episode.OutcomeSuccess}
	if err := m.CompleteEpisode(ctx, id, outcome); err != nil {
		t.Fatalf("CompleteEpisode: %v", err)
	}

	err := m.CompleteEpisode(ctx, id, outcome)
	if !apperrors.IsType(err, apperrors.ErrorTypeInvalidState) {
		t.Fatalf("expected InvalidState (AlreadyComplete) on a second completion, got %v", err)
	}
}

func TestCompleteEpisodeOnUnknownIDReturnsNotFound(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	err := m.CompleteEpisode(ctx, uuid.New(), episode.Outcome{Kind: episode.OutcomeSuccess})
	if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("expected NotFound for an unknown episode id, got %v", err)
	}
}

func TestGetEpisodeReturnsCompletedEpisode(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	id, _ := m.BeginEpisode(ctx, "task", richContext(), episode.TaskType("deployment"))
	_ = m.CompleteEpisode(ctx, id, episode.Outcome{Kind: episode.OutcomeSuccess})

	got, err := m.GetEpisode(ctx, id)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if got.ID != id {
		t.Fatalf("expected episode %s, got %s", id, got.ID)
	}
}

func TestArchiveEpisodeMarksArchived(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	id, _ := m.BeginEpisode(ctx, "task", richContext(), episode.TaskType("deployment"))
	_ = m.CompleteEpisode(ctx, id, episode.Outcome{Kind: episode.OutcomeSuccess})

	if err := m.ArchiveEpisode(ctx, id); err != nil {
		t.Fatalf("ArchiveEpisode: %v", err)
	}

	got, err := m.GetEpisode(ctx, id)
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if !got.IsArchived() {
		t.Fatal("expected episode to be archived")
	}
}

func TestRetrieveRelevantContextReturnsEpisodesInDomain(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	id, _ := m.BeginEpisode(ctx, "roll out a canary deployment", richContext(), episode.TaskType("deployment"))
	_ = m.CompleteEpisode(ctx, id, episode.Outcome{Kind: episode.OutcomeSuccess})

	results, err := m.RetrieveRelevantContext(ctx, "canary deployment", richContext(), 5)
	if err != nil {
		t.Fatalf("RetrieveRelevantContext: %v", err)
	}
	found := false
	for _, ep := range results {
		if ep.ID == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected episode %s among results %v", id, results)
	}
}

func TestAddAndRemoveTag(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	id, _ := m.BeginEpisode(ctx, "task", richContext(), episode.TaskType("deployment"))

	if err := m.AddTag(ctx, id, "flaky"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	ep, _ := m.GetEpisode(ctx, id)
	if len(ep.Tags) != 1 || ep.Tags[0] != "flaky" {
		t.Fatalf("expected tag 'flaky', got %v", ep.Tags)
	}

	if err := m.RemoveTag(ctx, id, "flaky"); err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	ep, _ = m.GetEpisode(ctx, id)
	if len(ep.Tags) != 0 {
		t.Fatalf("expected no tags after removal, got %v", ep.Tags)
	}
}

func TestRelateParentChildRejectsCycle(t *testing.T) {
	m, _ := newTestMemory()
	ctx := context.Background()

	a, _ := m.BeginEpisode(ctx, "a", richContext(), episode.TaskType("deployment"))
	b, _ := m.BeginEpisode(ctx, "b", richContext(), episode.TaskType("deployment"))

	if err := m.Relate(ctx, episode.RelationParentChild, a, b); err != nil {
		t.Fatalf("Relate a->b: %v", err)
	}
	if err := m.Relate(ctx, episode.RelationParentChild, b, a); err == nil {
		t.Fatal("expected a cycle-forming relation to be rejected")
	}
}
