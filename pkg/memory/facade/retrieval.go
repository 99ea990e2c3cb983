package facade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/memory/filter"
	"github.com/jordigilh/kubernaut/pkg/memory/search"
	"github.com/jordigilh/kubernaut/pkg/shared/mathutil"
)

// ListEpisodesFiltered returns episodes matching f, windowed by offset
// and limit. Episodes are drawn from the durable store and ordered by
// StartTime, newest first.
func (m *Memory) ListEpisodesFiltered(ctx context.Context, f *filter.Filter, limit, offset int) (episodes []*episode.Episode, err error) {
	ctx, span := m.startSpan(ctx, "list_episodes_filtered")
	defer func() { endSpan(span, err) }()

	all, err := m.sync.Durable().QueryEpisodesSince(ctx, time.Unix(0, 0).UTC())
	if err != nil {
		return nil, err
	}

	matched := f.Apply(all)
	sortEpisodesByStartTimeDescending(matched)

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if limit < 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func sortEpisodesByStartTimeDescending(episodes []*episode.Episode) {
	for i := 1; i < len(episodes); i++ {
		for j := i; j > 0 && episodes[j].StartTime.After(episodes[j-1].StartTime); j-- {
			episodes[j], episodes[j-1] = episodes[j-1], episodes[j]
		}
	}
}

// RetrieveRelevantContext finds the k episodes most relevant to query
// within taskContext's domain. Candidates are narrowed by the
// spatiotemporal index to the domain's recent episodes, then ranked by
// a hybrid vector/lexical score; a prior identical lookup may be served
// from cache.
func (m *Memory) RetrieveRelevantContext(ctx context.Context, query string, taskContext episode.TaskContext, k int) (results []*episode.Episode, err error) {
	ctx, span := m.startSpan(ctx, "retrieve_relevant_context")
	defer func() { endSpan(span, err) }()

	cacheKey := fmt.Sprintf("retrieve:%s:%s:%d", taskContext.Domain, query, k)
	if m.cache != nil {
		if cached, ok := m.cache.Get(ctx, cacheKey); ok {
			if episodes, ok := cached.([]*episode.Episode); ok {
				return episodes, nil
			}
		}
	}

	m.mu.Lock()
	candidateIDs := m.index.Query(taskContext.Domain, nil, nil, nil, 200)
	m.mu.Unlock()

	candidates := make([]*episode.Episode, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		ep, err := m.GetEpisode(ctx, id)
		if err != nil {
			continue
		}
		candidates = append(candidates, ep)
	}

	var queryVector []float32
	if m.embed != nil {
		v, err := m.embed.Embed(ctx, query)
		if err == nil {
			queryVector = v
		}
	}

	vectorResults := make([]search.ScoredItem[uuid.UUID], 0, len(candidates))
	lexicalResults := make([]search.ScoredItem[uuid.UUID], 0, len(candidates))
	byID := make(map[uuid.UUID]*episode.Episode, len(candidates))
	for _, ep := range candidates {
		byID[ep.ID] = ep

		if queryVector != nil {
			if emb, err := m.sync.Durable().GetEmbedding(ctx, ep.ID.String()); err == nil {
				vectorResults = append(vectorResults, search.ScoredItem[uuid.UUID]{
					Item:  ep.ID,
					Score: mathutil.CosineSimilarity(toFloat64(queryVector), toFloat64(emb.Vector)),
				})
			}
		}
		lexicalResults = append(lexicalResults, search.ScoredItem[uuid.UUID]{
			Item:  ep.ID,
			Score: lexicalScore(query, ep),
		})
	}

	ranked := search.SearchWith(m.cfg.RetrievalWeights, vectorResults, lexicalResults, k)

	results = make([]*episode.Episode, 0, len(ranked))
	for _, r := range ranked {
		if ep, ok := byID[r.Item]; ok {
			results = append(results, ep)
		}
	}

	if m.cache != nil {
		m.cache.Set(ctx, cacheKey, results)
	}
	return results, nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// lexicalScore is a simple term-overlap score between query and the
// episode's description and tags, in [0, 1].
func lexicalScore(query string, ep *episode.Episode) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(ep.TaskDescription + " " + strings.Join(ep.Tags, " "))
	hits := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
