package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/iamerr"
)

type authorizeParams struct {
	NamespaceIDs []uuid.UUID    `json:"namespace_ids"`
	Subject      []attributeDTO `json:"subject"`
	Object       []attributeDTO `json:"object"`
	Action       []attributeDTO `json:"action"`
}

type authorizeResult struct {
	Allow bool `json:"allow"`
}

// authorizeHandler exposes the evaluator directly: it is the primitive the
// guard itself is built from (abac.Guard.Allow just synthesizes the three
// composites this method takes as input), so it carries no guard check of
// its own — there is no collection to authorize access to "authorize"
// against.
func authorizeHandler(ctx context.Context, deps *Deps, _ Caller, raw json.RawMessage) (any, error) {
	var p authorizeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if len(p.NamespaceIDs) == 0 {
		return nil, iamerr.BadRequest("namespace_ids is required")
	}
	allow, err := deps.Evaluator.Authorize(ctx, p.NamespaceIDs,
		compositeFromDTO(p.Subject), compositeFromDTO(p.Object), compositeFromDTO(p.Action))
	if err != nil {
		return nil, err
	}
	return authorizeResult{Allow: allow}, nil
}
