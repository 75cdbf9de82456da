package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
)

func registerPolicyMethods(handlers map[string]Handler) {
	handlers["abac_policy.create"] = policyCreate
	handlers["abac_policy.read"] = policyRead
	handlers["abac_policy.delete"] = policyDelete
	handlers["abac_policy.list"] = policyList
}

type policyDTO struct {
	ID          uuid.UUID      `json:"id,omitempty"`
	NamespaceID uuid.UUID      `json:"namespace_id"`
	Subject     []attributeDTO `json:"subject"`
	Object      []attributeDTO `json:"object"`
	Action      []attributeDTO `json:"action"`
	NotBefore   *time.Time     `json:"not_before,omitempty"`
	ExpiredAt   *time.Time     `json:"expired_at,omitempty"`
}

func policyResultOf(p abac.Policy) policyDTO {
	return policyDTO{
		ID:          p.ID,
		NamespaceID: p.NamespaceID,
		Subject:     compositeDTO(p.Subject),
		Object:      compositeDTO(p.Object),
		Action:      compositeDTO(p.Action),
		NotBefore:   p.NotBefore,
		ExpiredAt:   p.ExpiredAt,
	}
}

func policyCreate(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p policyDTO
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if len(p.Subject) == 0 || len(p.Object) == 0 || len(p.Action) == 0 {
		return nil, iamerr.BadRequest("subject, object, and action are required")
	}
	if err := requireGuard(ctx, deps, caller, p.NamespaceID, abac.CollectionAbacPolicy, abac.OpCreate); err != nil {
		return nil, err
	}
	created, err := deps.Store.CreatePolicy(ctx, abac.Policy{
		NamespaceID: p.NamespaceID,
		Subject:     compositeFromDTO(p.Subject),
		Object:      compositeFromDTO(p.Object),
		Action:      compositeFromDTO(p.Action),
		NotBefore:   p.NotBefore,
		ExpiredAt:   p.ExpiredAt,
	})
	if err != nil {
		return nil, err
	}
	return policyResultOf(created), nil
}

type policyIDParams struct {
	NamespaceID uuid.UUID `json:"namespace_id"`
	ID          uuid.UUID `json:"id"`
}

func policyRead(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p policyIDParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if err := requireGuard(ctx, deps, caller, p.NamespaceID, abac.CollectionAbacPolicy, abac.OpRead); err != nil {
		return nil, err
	}
	pol, err := deps.Store.GetPolicy(ctx, p.NamespaceID, p.ID)
	if err != nil {
		return nil, err
	}
	if pol == nil {
		return nil, iamerr.NotFound("policy not found")
	}
	return policyResultOf(*pol), nil
}

func policyDelete(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p policyIDParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if err := requireGuard(ctx, deps, caller, p.NamespaceID, abac.CollectionAbacPolicy, abac.OpDelete); err != nil {
		return nil, err
	}
	if err := deps.Store.DeletePolicy(ctx, p.NamespaceID, p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

func policyList(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
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
	if err := requireGuard(ctx, deps, caller, p.NamespaceID, abac.CollectionAbacPolicy, abac.OpList); err != nil {
		return nil, err
	}
	policies, err := deps.Store.ListPolicies(ctx, p.NamespaceID, limit, p.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]policyDTO, len(policies))
	for i, pol := range policies {
		out[i] = policyResultOf(pol)
	}
	return out, nil
}
