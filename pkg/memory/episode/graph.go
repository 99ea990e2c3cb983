package episode

import (
	"github.com/google/uuid"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
)

// acyclicKinds are the relation kinds that participate in the
// acyclicity invariant; the rest (follows, related_to, blocks,
// duplicates, references) are advisory cross-links with no cycle
// constraint.
var acyclicKinds = map[RelationKind]bool{
	RelationDependsOn:   true,
	RelationParentChild: true,
}

// RelationGraph tracks the depends_on/parent_child edges across a set
// of episodes so new edges can be rejected if they would close a
// cycle. The episode structs themselves hold the authoritative edge
// list; RelationGraph is a query/validation index built from them.
type RelationGraph struct {
	edges map[uuid.UUID][]uuid.UUID
}

// NewRelationGraph builds an empty relation graph.
func NewRelationGraph() *RelationGraph {
	return &RelationGraph{edges: make(map[uuid.UUID][]uuid.UUID)}
}

// Load indexes the acyclic-kind relations already present on episodes,
// for example after reading a batch back from storage. It does not
// validate acyclicity of the loaded data; use it only for data already
// known to satisfy the invariant.
func (g *RelationGraph) Load(episodes []*Episode) {
	for _, e := range episodes {
		for _, r := range e.Relations {
			if acyclicKinds[r.Kind] {
				g.edges[e.ID] = append(g.edges[e.ID], r.Target)
			}
		}
	}
}

// Add records a new depends_on/parent_child edge from source to
// target, rejecting it if it would introduce a cycle. Kinds outside
// the acyclic set are accepted without a cycle check and are not
// recorded in the graph.
func (g *RelationGraph) Add(kind RelationKind, source, target uuid.UUID) error {
	if !acyclicKinds[kind] {
		return nil
	}
	if source == target {
		return apperrors.NewInvalidInputError("an episode cannot relate to itself")
	}
	if g.hasPath(target, source) {
		return apperrors.NewInvalidInputError("relation would introduce a cycle")
	}
	g.edges[source] = append(g.edges[source], target)
	return nil
}

// hasPath reports whether there is a directed path from start to goal
// in the current edge set, via depth-first search.
func (g *RelationGraph) hasPath(start, goal uuid.UUID) bool {
	visited := make(map[uuid.UUID]bool)
	var visit func(n uuid.UUID) bool
	visit = func(n uuid.UUID) bool {
		if n == goal {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, next := range g.edges[n] {
			if visit(next) {
				return true
			}
		}
		return false
	}
	return visit(start)
}
