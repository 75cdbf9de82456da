package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
)

// registerAttrMethods wires the create/read/delete/list verbs spec.md
// §4.1/§4.2 gives each of the three edge relations, plus tree, which is
// served by the same handler as list. The three abac_*_attr entities are
// schema- and behavior-identical from the RPC dispatcher's point of view —
// only the underlying relation and the guard's collection tag differ — so
// one set of closures serves all three, parameterized by entity prefix.
func registerAttrMethods(handlers map[string]Handler, entity string, relation abac.Relation, collection string) {
	handlers[entity+".create"] = func(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
		return attrCreate(ctx, deps, caller, relation, collection, raw)
	}
	handlers[entity+".read"] = func(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
		return attrRead(ctx, deps, caller, relation, collection, raw)
	}
	handlers[entity+".delete"] = func(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
		return attrDelete(ctx, deps, caller, relation, collection, raw)
	}
	handlers[entity+".list"] = func(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
		return attrList(ctx, deps, caller, relation, collection, raw)
	}
	handlers[entity+".tree"] = func(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
		return attrList(ctx, deps, caller, relation, collection, raw)
	}
}

type edgeParams struct {
	NamespaceID uuid.UUID      `json:"namespace_id"`
	Inbound     []attributeDTO `json:"inbound"`
	Outbound    []attributeDTO `json:"outbound"`
}

type edgeResult struct {
	NamespaceID uuid.UUID      `json:"namespace_id"`
	Inbound     []attributeDTO `json:"inbound"`
	Outbound    []attributeDTO `json:"outbound"`
}

func edgeResultOf(e abac.Edge) edgeResult {
	return edgeResult{NamespaceID: e.NamespaceID, Inbound: compositeDTO(e.Inbound), Outbound: compositeDTO(e.Outbound)}
}

func attrCreate(ctx context.Context, deps *Deps, caller Caller, relation abac.Relation, collection string, raw json.RawMessage) (any, error) {
	var p edgeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if len(p.Inbound) == 0 || len(p.Outbound) == 0 {
		return nil, iamerr.BadRequest("inbound and outbound are required")
	}
	edge := abac.Edge{NamespaceID: p.NamespaceID, Inbound: compositeFromDTO(p.Inbound), Outbound: compositeFromDTO(p.Outbound)}
	if err := requireEdgeGuard(ctx, deps, caller, collection, abac.OpCreate, edge); err != nil {
		return nil, err
	}
	if err := deps.Store.InsertEdge(ctx, relation, edge); err != nil {
		return nil, err
	}
	return edgeResultOf(edge), nil
}

func attrRead(ctx context.Context, deps *Deps, caller Caller, relation abac.Relation, collection string, raw json.RawMessage) (any, error) {
	var p edgeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if len(p.Inbound) == 0 || len(p.Outbound) == 0 {
		return nil, iamerr.BadRequest("inbound and outbound are required")
	}
	if err := requireGuard(ctx, deps, caller, p.NamespaceID, collection, abac.OpRead); err != nil {
		return nil, err
	}
	outbound := compositeFromDTO(p.Outbound)
	edges, err := deps.Store.FindEdges(ctx, relation, p.NamespaceID, compositeFromDTO(p.Inbound))
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if e.Outbound.Equal(outbound) {
			return edgeResultOf(e), nil
		}
	}
	return nil, iamerr.NotFound("edge not found")
}

func attrDelete(ctx context.Context, deps *Deps, caller Caller, relation abac.Relation, collection string, raw json.RawMessage) (any, error) {
	var p edgeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if len(p.Inbound) == 0 || len(p.Outbound) == 0 {
		return nil, iamerr.BadRequest("inbound and outbound are required")
	}
	edge := abac.Edge{NamespaceID: p.NamespaceID, Inbound: compositeFromDTO(p.Inbound), Outbound: compositeFromDTO(p.Outbound)}
	if err := requireEdgeGuard(ctx, deps, caller, collection, abac.OpDelete, edge); err != nil {
		return nil, err
	}
	if err := deps.Store.DeleteEdge(ctx, relation, p.NamespaceID, edge.Inbound, edge.Outbound); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

type listEdgesParams struct {
	NamespaceID uuid.UUID `json:"namespace_id"`
	Limit       int       `json:"limit"`
	Offset      int       `json:"offset"`
}

func attrList(ctx context.Context, deps *Deps, caller Caller, relation abac.Relation, collection string, raw json.RawMessage) (any, error) {
	var p listEdgesParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, iamerr.BadRequest("invalid params: %v", err)
		}
	}
	limit, err := clampLimit(deps, p.Limit)
	if err != nil {
		return nil, err
	}
	if err := requireGuard(ctx, deps, caller, p.NamespaceID, collection, abac.OpList); err != nil {
		return nil, err
	}
	edges, err := deps.Store.ListEdges(ctx, relation, p.NamespaceID, limit, p.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]edgeResult, len(edges))
	for i, e := range edges {
		out[i] = edgeResultOf(e)
	}
	return out, nil
}
