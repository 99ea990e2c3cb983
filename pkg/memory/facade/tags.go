package facade

import (
	"context"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// AddTag adds tag to the episode's tag set, persisting the change. A
// tag already present is a no-op.
func (m *Memory) AddTag(ctx context.Context, id uuid.UUID, tag string) (err error) {
	ctx, span := m.startSpan(ctx, "add_tag")
	defer func() { endSpan(span, err) }()

	ep, err := m.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	for _, t := range ep.Tags {
		if t == tag {
			return nil
		}
	}
	ep.Tags = append(ep.Tags, tag)
	return m.sync.StoreEpisode(ctx, ep)
}

// RemoveTag removes tag from the episode's tag set, persisting the
// change. Removing a tag not present is a no-op.
func (m *Memory) RemoveTag(ctx context.Context, id uuid.UUID, tag string) (err error) {
	ctx, span := m.startSpan(ctx, "remove_tag")
	defer func() { endSpan(span, err) }()

	ep, err := m.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	kept := ep.Tags[:0]
	for _, t := range ep.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	ep.Tags = kept
	return m.sync.StoreEpisode(ctx, ep)
}

// Relate records a relationship from source to target. parent_child
// and depends_on edges are cycle-checked through the façade's
// RelationGraph before being recorded on the source episode; the other
// relation kinds are advisory and recorded directly.
func (m *Memory) Relate(ctx context.Context, kind episode.RelationKind, source, target uuid.UUID) (err error) {
	ctx, span := m.startSpan(ctx, "relate")
	defer func() { endSpan(span, err) }()

	if kind == episode.RelationParentChild || kind == episode.RelationDependsOn {
		m.mu.Lock()
		err := m.relGraph.Add(kind, source, target)
		m.mu.Unlock()
		if err != nil {
			return err
		}
	}

	ep, err := m.GetEpisode(ctx, source)
	if err != nil {
		return err
	}
	ep.AddRelation(kind, target)
	return m.sync.StoreEpisode(ctx, ep)
}
