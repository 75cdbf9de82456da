package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
)

// Expand computes seed's transitive outbound closure in one bounded
// recursive query instead of GraphExpander's round-trip-per-hop worklist —
// the production path; GraphExpander remains the reference implementation
// the in-memory test fakes use. depth and total row count are capped the
// same way GraphExpander caps them. Only reaching the row cap is recorded
// as a truncation here; the query does not report whether the depth cap
// cut the walk short.
func (s *Store) Expand(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, seed abac.Composite) ([]abac.Composite, error) {
	maxDepth := s.ExpansionMaxDepth
	if maxDepth <= 0 {
		maxDepth = 16
	}
	maxRows := s.ExpansionMaxRows
	if maxRows <= 0 {
		maxRows = 10000
	}

	seedValue, err := abac.CompositeColumn(abac.NewComposite(seed...)).Value()
	if err != nil {
		return nil, iamerr.Internal(err, "expand: encode seed")
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE walk(composite, depth) AS (
			SELECT $1::abac_attribute[], 0
			UNION ALL
			SELECT e.outbound, w.depth + 1
			FROM %s e
			JOIN walk w ON e.namespace_id = $2 AND e.inbound = w.composite
			WHERE w.depth < $3
		)
		SELECT DISTINCT composite FROM walk LIMIT $4
	`, relationTable(relation))

	rows, err := s.Pool.Query(ctx, query, seedValue, namespaceID, maxDepth, maxRows)
	if err != nil {
		return nil, iamerr.Internal(err, "expand: query")
	}
	defer rows.Close()

	var out []abac.Composite
	for rows.Next() {
		var col abac.CompositeColumn
		if err := rows.Scan(&col); err != nil {
			return nil, iamerr.Internal(err, "expand: scan")
		}
		out = append(out, abac.Composite(col))
	}
	if err := rows.Err(); err != nil {
		return nil, iamerr.Internal(err, "expand: rows")
	}
	if len(out) >= maxRows {
		abac.RecordExpansionTruncated(relation)
	}
	return out, nil
}

// relationTable returns relation's backing table name. relation is always
// one of the three package-level Relation constants, never user input, so
// the plain string is safe to interpolate into the query.
func relationTable(relation abac.Relation) string {
	return string(relation)
}

var _ abac.Expander = (*Store)(nil)
