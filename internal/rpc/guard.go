package rpc

import (
	"context"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
)

// requireGuard synthesizes and evaluates the (caller, collection, op)
// authorization check every mutating and read entity method passes through
// first (spec.md §4.5), scoping the check to namespaceID — the namespace
// the targeted record is primarily scoped to. An anonymous caller is
// rejected before the guard ever runs a query, matching "unauthenticated
// requests receive Forbidden before any store touch."
func requireGuard(ctx context.Context, deps *Deps, caller Caller, namespaceID uuid.UUID, collection, op string) error {
	if !caller.Authenticated {
		return iamerr.Forbidden("authentication required")
	}
	return deps.Guard.Require(ctx, caller.Composite(deps.NamespaceID), namespaceID, collection, op)
}

// requireEdgeGuard is requireGuard's graph-edge counterpart: it authorizes
// against every namespace the edge touches and accepts if any one succeeds
// (spec.md §4.5 step 4, "either owner may unlink").
func requireEdgeGuard(ctx context.Context, deps *Deps, caller Caller, collection, op string, edge abac.Edge) error {
	if !caller.Authenticated {
		return iamerr.Forbidden("authentication required")
	}
	return deps.Guard.RequireEdge(ctx, caller.Composite(deps.NamespaceID), collection, op, edge)
}

// clampLimit applies the configured pagination default/ceiling to a
// caller-supplied limit (spec.md §4.5 "pagination ceiling").
func clampLimit(deps *Deps, requested int) (int, error) {
	if requested <= 0 {
		return deps.Config.PaginationLimit, nil
	}
	if deps.Config.PaginationLimitMax > 0 && requested > deps.Config.PaginationLimitMax {
		return 0, iamerr.BadRequest("limit %d exceeds maximum %d", requested, deps.Config.PaginationLimitMax)
	}
	return requested, nil
}
