package abac

import (
	"context"

	"github.com/google/uuid"
)

// Relation names one of the three typed edge tables the graph maintains.
// Subject edges relate accounts/identities to more general subject
// composites; object edges relate collection/URI composites to more
// general object composites; action edges relate individual operations to
// the "any" operation.
type Relation string

const (
	RelationSubject Relation = "abac_subject"
	RelationObject  Relation = "abac_object"
	RelationAction  Relation = "abac_action"
)

// Edge is one directed arc of the graph: Inbound is the specific composite,
// Outbound is the more general composite it points to. A caller holding
// Inbound's attributes is also considered to hold Outbound's, transitively.
type Edge struct {
	NamespaceID uuid.UUID
	Inbound     Composite
	Outbound    Composite
}

// GraphStore persists the three edge relations. Implementations must
// enforce that Insert is idempotent on (namespace_id, inbound, outbound)
// and that Delete is a no-op when the edge does not exist.
type GraphStore interface {
	InsertEdge(ctx context.Context, relation Relation, edge Edge) error
	DeleteEdge(ctx context.Context, relation Relation, namespaceID uuid.UUID, inbound, outbound Composite) error
	ListEdges(ctx context.Context, relation Relation, namespaceID uuid.UUID, limit, offset int) ([]Edge, error)
	// FindEdges returns every edge whose Inbound exactly matches inbound
	// within namespaceID. An inbound composite may belong to more than one
	// outbound group, so callers must not assume at most one result.
	FindEdges(ctx context.Context, relation Relation, namespaceID uuid.UUID, inbound Composite) ([]Edge, error)
}
