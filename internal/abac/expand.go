package abac

import (
	"context"

	"github.com/google/uuid"
	"github.com/netology-group/iam/internal/iamerr"
)

// Expander computes the transitive closure of a seed composite over one
// relation: every composite reachable by following outbound edges,
// including the seed itself. A Postgres-backed implementation runs this as
// a single bounded recursive query (see internal/store's Store.Expand);
// GraphExpander below is the plain-Go equivalent used by the
// in-memory test fakes and as a reference implementation of the same
// algorithm.
type Expander interface {
	Expand(ctx context.Context, relation Relation, namespaceID uuid.UUID, seed Composite) ([]Composite, error)
}

// GraphExpander expands by repeatedly querying a GraphStore with a
// worklist, tracking a visited set so cycles terminate. It is bounded by
// MaxDepth (hop count) and MaxRows (total composites visited) to match the
// same caps the SQL recursive CTE enforces in production.
type GraphExpander struct {
	Store    GraphStore
	MaxDepth int
	MaxRows  int
}

// Expand returns every composite reachable from seed by following outbound
// edges in relation, starting with seed itself.
func (e *GraphExpander) Expand(ctx context.Context, relation Relation, namespaceID uuid.UUID, seed Composite) ([]Composite, error) {
	maxDepth := e.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 16
	}
	maxRows := e.MaxRows
	if maxRows <= 0 {
		maxRows = 10000
	}

	visited := []Composite{seed}
	seen := map[string]bool{compositeKey(seed): true}
	frontier := []Composite{seed}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []Composite
		for _, c := range frontier {
			edges, err := e.Store.FindEdges(ctx, relation, namespaceID, c)
			if err != nil {
				return nil, iamerr.Internal(err, "expand: find edges")
			}
			for _, edge := range edges {
				key := compositeKey(edge.Outbound)
				if seen[key] {
					continue
				}
				seen[key] = true
				visited = append(visited, edge.Outbound)
				next = append(next, edge.Outbound)
				if len(visited) >= maxRows {
					recordExpansionTruncated(relation)
					return visited, nil
				}
			}
		}
		frontier = next
	}
	if len(frontier) > 0 {
		recordExpansionTruncated(relation)
	}
	return visited, nil
}

func compositeKey(c Composite) string {
	s := ""
	for _, a := range NewComposite(c...) {
		s += a.String() + "|"
	}
	return s
}
