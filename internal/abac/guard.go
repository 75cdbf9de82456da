package abac

import (
	"context"

	"github.com/google/uuid"
	"github.com/netology-group/iam/internal/iamerr"
)

// Guard is the self-governed mutation gate: every create/read/update/
// delete/list call against one of the ABAC-governed collections —
// including the graph and policy tables themselves — synthesizes a
// (caller, collection, operation) authorization query against the IAM
// namespace and evaluates it with the same Evaluator used for the public
// authorize RPC. There is no separate "superuser" bypass; the bootstrap
// seeder (internal/bootstrap) is the only code that writes to these tables
// without going through a Guard, because the policies a Guard would check
// don't exist yet at bootstrap time.
type Guard struct {
	Evaluator   *Evaluator
	NamespaceID uuid.UUID
}

// NewGuard constructs a Guard that evaluates every check against
// namespaceID — normally the IAM namespace identified by
// config.Config.IAMNamespaceID.
func NewGuard(evaluator *Evaluator, namespaceID uuid.UUID) *Guard {
	return &Guard{Evaluator: evaluator, NamespaceID: namespaceID}
}

// Allow reports whether caller may perform op on collection for records
// primarily scoped to namespaceID. caller is the authenticated account's
// attribute set (its AccountURI plus anything its subject closure would add
// — callers normally pass just the AccountURI composite and let the
// evaluator's own expansion do the rest). The synthesized object composite
// carries both the target namespace's URI and the collection's type
// attribute (spec.md §4.5 step 1); a policy need only name a subset of that
// pair to match, since the evaluator subset-matches rather than requires
// exact equality.
func (g *Guard) Allow(ctx context.Context, caller Composite, namespaceID uuid.UUID, collection, op string) (bool, error) {
	object := NewComposite(NamespaceURI(g.NamespaceID, namespaceID), CollectionType(g.NamespaceID, collection))
	action := NewComposite(Operation(g.NamespaceID, op))
	allow, err := g.Evaluator.Authorize(ctx, []uuid.UUID{g.NamespaceID}, caller, object, action)
	if err != nil {
		return false, err
	}
	if !allow {
		recordGuardDenial()
	}
	return allow, nil
}

// Require is Allow with the Forbidden error already attached, for handlers
// that just want to bail out on denial.
func (g *Guard) Require(ctx context.Context, caller Composite, namespaceID uuid.UUID, collection, op string) error {
	allow, err := g.Allow(ctx, caller, namespaceID, collection, op)
	if err != nil {
		return err
	}
	if !allow {
		return iamerr.Forbidden("not authorized to %s %s", op, collection)
	}
	return nil
}

// RequireEdge authorizes a mutation on a graph edge that may span two
// namespaces — e.g. an object edge from namespace X to namespace Y. Per
// spec.md §4.5 step 4, the guard tries each namespace the edge touches and
// accepts if any one of them authorizes the call: "either owner may
// unlink". The candidate namespaces are the edge's own owning namespace
// plus every namespace named by an inbound or outbound attribute.
func (g *Guard) RequireEdge(ctx context.Context, caller Composite, collection, op string, edge Edge) error {
	for _, ns := range edgeNamespaces(edge) {
		allow, err := g.Allow(ctx, caller, ns, collection, op)
		if err != nil {
			return err
		}
		if allow {
			return nil
		}
	}
	return iamerr.Forbidden("not authorized to %s %s", op, collection)
}

// edgeNamespaces lists the distinct namespaces a guard check against edge
// should try: the edge's owning namespace plus any namespace an endpoint
// attribute names, since cross-namespace edges are how delegation works
// (spec.md §3.3).
func edgeNamespaces(edge Edge) []uuid.UUID {
	seen := map[uuid.UUID]bool{edge.NamespaceID: true}
	out := []uuid.UUID{edge.NamespaceID}
	add := func(c Composite) {
		for _, a := range c {
			if !seen[a.NamespaceID] {
				seen[a.NamespaceID] = true
				out = append(out, a.NamespaceID)
			}
		}
	}
	add(edge.Inbound)
	add(edge.Outbound)
	return out
}
