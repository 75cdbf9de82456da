package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
	"github.com/netology-group/iam/internal/model"
)

func registerNamespaceMethods(handlers map[string]Handler) {
	handlers["namespace.create"] = namespaceCreate
	handlers["namespace.read"] = namespaceRead
	handlers["namespace.delete"] = namespaceDelete
	handlers["namespace.list"] = namespaceList
}

type namespaceDTO struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

func namespaceDTOOf(n model.Namespace) namespaceDTO {
	return namespaceDTO{ID: n.ID, Label: n.Label, CreatedAt: n.CreatedAt}
}

type createNamespaceParams struct {
	Label string `json:"label"`
}

func namespaceCreate(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p createNamespaceParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if p.Label == "" {
		return nil, iamerr.BadRequest("label is required")
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionNamespace, abac.OpCreate); err != nil {
		return nil, err
	}
	ns, err := deps.Store.CreateNamespace(ctx, p.Label)
	if err != nil {
		return nil, err
	}
	return namespaceDTOOf(ns), nil
}

type namespaceIDParams struct {
	ID uuid.UUID `json:"id"`
}

func namespaceRead(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p namespaceIDParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionNamespace, abac.OpRead); err != nil {
		return nil, err
	}
	ns, err := deps.Store.GetNamespace(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		return nil, iamerr.NotFound("namespace not found")
	}
	return namespaceDTOOf(*ns), nil
}

func namespaceDelete(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p namespaceIDParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionNamespace, abac.OpDelete); err != nil {
		return nil, err
	}
	if err := deps.Store.SoftDeleteNamespace(ctx, p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

type listNamespacesParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func namespaceList(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p listNamespacesParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, iamerr.BadRequest("invalid params: %v", err)
		}
	}
	limit, err := clampLimit(deps, p.Limit)
	if err != nil {
		return nil, err
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionNamespace, abac.OpList); err != nil {
		return nil, err
	}
	namespaces, err := deps.Store.ListNamespaces(ctx, limit, p.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]namespaceDTO, len(namespaces))
	for i, n := range namespaces {
		out[i] = namespaceDTOOf(n)
	}
	return out, nil
}
