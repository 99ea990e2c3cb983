package facade

import (
	"context"
	"time"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/learning/scoring"
)

// SearchPatterns ranks every stored pattern relevant to taskContext
// against query's embedding, keeping the top k above the minimum
// relevance floor.
func (m *Memory) SearchPatterns(ctx context.Context, query string, taskContext episode.TaskContext, k int) (patterns []*episode.Pattern, err error) {
	ctx, span := m.startSpan(ctx, "search_patterns")
	defer func() { endSpan(span, err) }()

	var queryVector []float32
	if m.embed != nil {
		if v, err := m.embed.Embed(ctx, query); err == nil {
			queryVector = v
		}
	}

	candidates, err := m.allPatterns(ctx)
	if err != nil {
		return nil, err
	}

	sq := scoring.Query{Embedding: queryVector, Context: taskContext}
	ranked := scoring.Rank(candidates, sq, scoring.DefaultWeights(), 0, time.Now().UTC(), m.patternEmbedding(ctx))

	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	patterns = make([]*episode.Pattern, 0, len(ranked))
	for _, s := range ranked {
		patterns = append(patterns, s.Pattern)
	}
	return patterns, nil
}

// RecommendPatternsForTask is SearchPatterns specialized for a task
// description rather than a free-form query.
func (m *Memory) RecommendPatternsForTask(ctx context.Context, task string, taskContext episode.TaskContext, k int) ([]*episode.Pattern, error) {
	return m.SearchPatterns(ctx, task, taskContext, k)
}

// patternEmbedding returns a lookup closure resolving a pattern's
// associated embedding by its stored key, tolerating patterns with no
// embedding on record.
func (m *Memory) patternEmbedding(ctx context.Context) func(*episode.Pattern) []float32 {
	return func(p *episode.Pattern) []float32 {
		emb, err := m.sync.Durable().GetEmbedding(ctx, p.ID.String())
		if err != nil {
			return nil
		}
		return emb.Vector
	}
}

// allPatterns collects every pattern reachable from every known
// episode's PatternIDs. There is no bulk pattern listing on the storage
// contract, so candidates are discovered through the episodes that
// produced them.
func (m *Memory) allPatterns(ctx context.Context) ([]*episode.Pattern, error) {
	episodes, err := m.sync.Durable().QueryEpisodesSince(ctx, time.Unix(0, 0).UTC())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var patterns []*episode.Pattern
	for _, ep := range episodes {
		for _, id := range ep.PatternIDs {
			if seen[id.String()] {
				continue
			}
			seen[id.String()] = true
			p, err := m.sync.Durable().GetPattern(ctx, id)
			if err != nil {
				continue
			}
			patterns = append(patterns, p)
		}
	}
	return patterns, nil
}
