package durable

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	apperrors "github.com/jordigilh/kubernaut/internal/errors"
)

// episodeRow is the sqlx scan target for the episodes table. Sub-objects
// are stored as JSON text, optionally wrapped in the compressed-payload
// encoding (compression.go), never as native JSONB — this keeps the
// schema portable across the zstd/gzip/lz4 codecs this store supports.
type episodeRow struct {
	ID              uuid.UUID `db:"id"`
	TaskType        string    `db:"task_type"`
	TaskDescription string    `db:"task_description"`
	Context         string    `db:"context"`
	Outcome         *string   `db:"outcome"`
	Reward          *string   `db:"reward"`
	Reflection      *string   `db:"reflection"`
	PatternIDs      *string   `db:"pattern_ids"`
	HeuristicIDs    *string   `db:"heuristic_ids"`
	Metadata        *string   `db:"metadata"`
	Tags            *string   `db:"tags"`
	Relations       *string   `db:"relations"`
	StartTime       time.Time `db:"start_time"`
	EndTime         *time.Time `db:"end_time"`
}

type stepRow struct {
	EpisodeID uuid.UUID `db:"episode_id"`
	Sequence  int       `db:"sequence"`
	Step      string    `db:"step"`
}

func marshalJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", apperrors.NewSerializationError("failed to marshal value").WithDetailsf("%v", err)
	}
	compressed, err := Compress(b, AlgorithmZstd)
	if err != nil {
		return "", apperrors.NewSerializationError("failed to compress value").WithDetailsf("%v", err)
	}
	return string(compressed), nil
}

func unmarshalJSON(s *string, out interface{}) error {
	if s == nil || *s == "" {
		return nil
	}
	raw, err := Decompress([]byte(*s))
	if err != nil {
		return apperrors.NewSerializationError("failed to decompress value").WithDetailsf("%v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewSerializationError("failed to unmarshal value").WithDetailsf("%v", err)
	}
	return nil
}

func toEpisodeRow(ep *episode.Episode) (episodeRow, []stepRow, error) {
	row := episodeRow{
		ID:              ep.ID,
		TaskType:        string(ep.TaskType),
		TaskDescription: ep.TaskDescription,
		StartTime:       ep.StartTime,
		EndTime:         ep.EndTime,
	}

	ctx, err := marshalJSON(ep.Context)
	if err != nil {
		return row, nil, err
	}
	row.Context = ctx

	if ep.Outcome != nil {
		s, err := marshalJSON(ep.Outcome)
		if err != nil {
			return row, nil, err
		}
		row.Outcome = &s
	}
	if ep.Reward != nil {
		s, err := marshalJSON(ep.Reward)
		if err != nil {
			return row, nil, err
		}
		row.Reward = &s
	}
	if ep.Reflection != nil {
		s, err := marshalJSON(ep.Reflection)
		if err != nil {
			return row, nil, err
		}
		row.Reflection = &s
	}
	if len(ep.PatternIDs) > 0 {
		s, err := marshalJSON(ep.PatternIDs)
		if err != nil {
			return row, nil, err
		}
		row.PatternIDs = &s
	}
	if len(ep.HeuristicIDs) > 0 {
		s, err := marshalJSON(ep.HeuristicIDs)
		if err != nil {
			return row, nil, err
		}
		row.HeuristicIDs = &s
	}
	if len(ep.Metadata) > 0 {
		s, err := marshalJSON(ep.Metadata)
		if err != nil {
			return row, nil, err
		}
		row.Metadata = &s
	}
	if len(ep.Tags) > 0 {
		s, err := marshalJSON(ep.Tags)
		if err != nil {
			return row, nil, err
		}
		row.Tags = &s
	}
	if len(ep.Relations) > 0 {
		s, err := marshalJSON(ep.Relations)
		if err != nil {
			return row, nil, err
		}
		row.Relations = &s
	}

	steps := make([]stepRow, len(ep.Steps))
	for i, step := range ep.Steps {
		s, err := marshalJSON(step)
		if err != nil {
			return row, nil, err
		}
		steps[i] = stepRow{EpisodeID: ep.ID, Sequence: step.Sequence, Step: s}
	}

	return row, steps, nil
}

func fromEpisodeRow(row episodeRow, steps []stepRow) (*episode.Episode, error) {
	ep := &episode.Episode{
		ID:              row.ID,
		TaskType:        episode.TaskType(row.TaskType),
		TaskDescription: row.TaskDescription,
		StartTime:       row.StartTime,
		EndTime:         row.EndTime,
	}

	ctxStr := row.Context
	if err := unmarshalJSON(&ctxStr, &ep.Context); err != nil {
		return nil, err
	}

	if row.Outcome != nil {
		ep.Outcome = &episode.Outcome{}
		if err := unmarshalJSON(row.Outcome, ep.Outcome); err != nil {
			return nil, err
		}
	}
	if row.Reward != nil {
		ep.Reward = &episode.Reward{}
		if err := unmarshalJSON(row.Reward, ep.Reward); err != nil {
			return nil, err
		}
	}
	if row.Reflection != nil {
		ep.Reflection = &episode.Reflection{}
		if err := unmarshalJSON(row.Reflection, ep.Reflection); err != nil {
			return nil, err
		}
	}
	if row.PatternIDs != nil {
		if err := unmarshalJSON(row.PatternIDs, &ep.PatternIDs); err != nil {
			return nil, err
		}
	}
	if row.HeuristicIDs != nil {
		if err := unmarshalJSON(row.HeuristicIDs, &ep.HeuristicIDs); err != nil {
			return nil, err
		}
	}
	if row.Metadata != nil {
		if err := unmarshalJSON(row.Metadata, &ep.Metadata); err != nil {
			return nil, err
		}
	}
	if row.Tags != nil {
		if err := unmarshalJSON(row.Tags, &ep.Tags); err != nil {
			return nil, err
		}
	}
	if row.Relations != nil {
		if err := unmarshalJSON(row.Relations, &ep.Relations); err != nil {
			return nil, err
		}
	}

	ep.Steps = make([]episode.ExecutionStep, len(steps))
	for i, s := range steps {
		step := s.Step
		if err := unmarshalJSON(&step, &ep.Steps[i]); err != nil {
			return nil, err
		}
	}

	return ep, nil
}

type patternRow struct {
	ID   uuid.UUID `db:"id"`
	Kind string    `db:"kind"`
	Body string    `db:"body"`
}

func toPatternRow(p *episode.Pattern) (patternRow, error) {
	body, err := marshalJSON(p)
	if err != nil {
		return patternRow{}, err
	}
	return patternRow{ID: p.ID, Kind: string(p.Kind), Body: body}, nil
}

func fromPatternRow(row patternRow) (*episode.Pattern, error) {
	p := &episode.Pattern{}
	body := row.Body
	if err := unmarshalJSON(&body, p); err != nil {
		return nil, err
	}
	return p, nil
}

type heuristicRow struct {
	ID        uuid.UUID `db:"id"`
	Body      string    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toHeuristicRow(h *episode.Heuristic) (heuristicRow, error) {
	body, err := marshalJSON(h)
	if err != nil {
		return heuristicRow{}, err
	}
	return heuristicRow{ID: h.ID, Body: body, UpdatedAt: h.UpdatedAt}, nil
}

func fromHeuristicRow(row heuristicRow) (*episode.Heuristic, error) {
	h := &episode.Heuristic{}
	body := row.Body
	if err := unmarshalJSON(&body, h); err != nil {
		return nil, err
	}
	return h, nil
}

type embeddingRow struct {
	Key       string    `db:"key"`
	Vector    string    `db:"vector"`
	CreatedAt time.Time `db:"created_at"`
}

func toEmbeddingRow(key string, vector []float32) (embeddingRow, error) {
	body, err := marshalJSON(vector)
	if err != nil {
		return embeddingRow{}, err
	}
	return embeddingRow{Key: key, Vector: body, CreatedAt: time.Now().UTC()}, nil
}

func fromEmbeddingRow(row embeddingRow) (*episode.Embedding, error) {
	var vector []float32
	body := row.Vector
	if err := unmarshalJSON(&body, &vector); err != nil {
		return nil, err
	}
	return &episode.Embedding{Key: row.Key, Vector: vector, CreatedAt: row.CreatedAt}, nil
}
