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

func registerAccountMethods(handlers map[string]Handler) {
	handlers["account.create"] = accountCreate
	handlers["account.read"] = accountRead
	handlers["account.update"] = accountUpdate
	handlers["account.delete"] = accountDelete
	handlers["account.list"] = accountList
}

type accountDTO struct {
	ID          uuid.UUID  `json:"id"`
	NamespaceID uuid.UUID  `json:"namespace_id"`
	DisabledAt  *time.Time `json:"disabled_at,omitempty"`
}

func accountDTOOf(a model.Account) accountDTO {
	return accountDTO{ID: a.ID, NamespaceID: a.NamespaceID, DisabledAt: a.DisabledAt}
}

type createAccountParams struct {
	NamespaceID uuid.UUID `json:"namespace_id"`
}

func accountCreate(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p createAccountParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if p.NamespaceID == (uuid.UUID{}) {
		return nil, iamerr.BadRequest("namespace_id is required")
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionAccount, abac.OpCreate); err != nil {
		return nil, err
	}
	a, err := deps.Store.CreateAccount(ctx, p.NamespaceID)
	if err != nil {
		return nil, err
	}
	return accountDTOOf(a), nil
}

type accountIDParams struct {
	ID uuid.UUID `json:"id"`
}

func accountRead(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p accountIDParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionAccount, abac.OpRead); err != nil {
		return nil, err
	}
	a, err := deps.Store.GetAccount(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, iamerr.NotFound("account not found")
	}
	return accountDTOOf(*a), nil
}

type updateAccountParams struct {
	ID       uuid.UUID `json:"id"`
	Disabled *bool     `json:"disabled"`
}

func accountUpdate(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p updateAccountParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if p.Disabled == nil {
		return nil, iamerr.BadRequest("disabled is required")
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionAccount, abac.OpUpdate); err != nil {
		return nil, err
	}
	if err := deps.Store.SetAccountDisabled(ctx, p.ID, *p.Disabled); err != nil {
		return nil, err
	}
	a, err := deps.Store.GetAccount(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, iamerr.NotFound("account not found")
	}
	return accountDTOOf(*a), nil
}

func accountDelete(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p accountIDParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionAccount, abac.OpDelete); err != nil {
		return nil, err
	}
	if err := deps.Store.DeleteAccount(ctx, p.ID); err != nil {
		return nil, err
	}
	return map[string]bool{"deleted": true}, nil
}

type listAccountsParams struct {
	NamespaceID uuid.UUID `json:"namespace_id"`
	Limit       int       `json:"limit"`
	Offset      int       `json:"offset"`
}

func accountList(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p listAccountsParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, iamerr.BadRequest("invalid params: %v", err)
		}
	}
	limit, err := clampLimit(deps, p.Limit)
	if err != nil {
		return nil, err
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionAccount, abac.OpList); err != nil {
		return nil, err
	}
	accounts, err := deps.Store.ListAccounts(ctx, p.NamespaceID, limit, p.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]accountDTO, len(accounts))
	for i, a := range accounts {
		out[i] = accountDTOOf(a)
	}
	return out, nil
}
