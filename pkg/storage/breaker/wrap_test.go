package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// countingBackend is a minimal storage.Backend double that always
// fails GetEpisode with a Storage error and counts how many times it
// was actually invoked, to prove the breaker short-circuits it once open.
type countingBackend struct {
	calls int
}

func (c *countingBackend) StoreEpisode(context.Context, *episode.Episode) error { return nil }
func (c *countingBackend) GetEpisode(context.Context, uuid.UUID) (*episode.Episode, error) {
	c.calls++
	return nil, apperrors.NewStorageError("get_episode", errors.New("connection refused"))
}
func (c *countingBackend) QueryEpisodesSince(context.Context, time.Time) ([]*episode.Episode, error) {
	return nil, nil
}
func (c *countingBackend) DeleteEpisode(context.Context, uuid.UUID) error       { return nil }
func (c *countingBackend) StorePattern(context.Context, *episode.Pattern) error { return nil }
func (c *countingBackend) GetPattern(context.Context, uuid.UUID) (*episode.Pattern, error) {
	return nil, apperrors.NewNotFoundError("pattern")
}
func (c *countingBackend) DeletePattern(context.Context, uuid.UUID) error         { return nil }
func (c *countingBackend) StoreHeuristic(context.Context, *episode.Heuristic) error { return nil }
func (c *countingBackend) GetHeuristic(context.Context, uuid.UUID) (*episode.Heuristic, error) {
	return nil, apperrors.NewNotFoundError("heuristic")
}
func (c *countingBackend) DeleteHeuristic(context.Context, uuid.UUID) error        { return nil }
func (c *countingBackend) StoreEmbedding(context.Context, string, []float32) error { return nil }
func (c *countingBackend) GetEmbedding(context.Context, string) (*episode.Embedding, error) {
	return nil, apperrors.NewNotFoundError("embedding")
}
func (c *countingBackend) DeleteEmbedding(context.Context, string) error { return nil }
func (c *countingBackend) Ping(context.Context) error                   { return nil }

func TestGuardedBackendRejectsAfterThreshold(t *testing.T) {
	inner := &countingBackend{}
	b := New(Config{Name: "test", FailureThreshold: 3, Timeout: time.Minute, BaseDelay: time.Millisecond, MaxDelay: time.Second}, nil)
	guarded := Guard(inner, b)

	for i := 0; i < 3; i++ {
		if _, err := guarded.GetEpisode(context.Background(), uuid.New()); err == nil {
			t.Fatalf("expected a storage error on call %d", i)
		}
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 underlying calls, got %d", inner.calls)
	}

	_, err := guarded.GetEpisode(context.Background(), uuid.New())
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen on the 4th call, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected the rejected call to never reach the backend, calls=%d", inner.calls)
	}
}
