package rpc

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
	"github.com/netology-group/iam/internal/model"
)

func registerIdentityMethods(handlers map[string]Handler) {
	handlers["identity.create"] = identityCreate
	handlers["identity.delete"] = identityDelete
	handlers["identity.list"] = identityList
}

type identityDTO struct {
	Provider  string    `json:"provider"`
	Label     string    `json:"label"`
	Sub       string    `json:"sub"`
	AccountID uuid.UUID `json:"account_id"`
}

func identityDTOOf(i model.Identity) identityDTO {
	return identityDTO{Provider: i.Provider, Label: i.Label, Sub: i.Sub, AccountID: i.AccountID}
}

type createIdentityParams struct {
	Provider  string    `json:"provider"`
	Label     string    `json:"label"`
	Sub       string    `json:"sub"`
	AccountID uuid.UUID `json:"account_id"`
}

func identityCreate(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p createIdentityParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if p.Provider == "" || p.Sub == "" || p.AccountID == (uuid.UUID{}) {
		return nil, iamerr.BadRequest("provider, sub and account_id are required")
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionIdentity, abac.OpCreate); err != nil {
		return nil, err
	}
	identity := model.Identity{Provider: p.Provider, Label: p.Label, Sub: p.Sub, AccountID: p.AccountID}
	if err := deps.Store.CreateIdentity(ctx, identity); err != nil {
		return nil, err
	}
	return identityDTOOf(identity), nil
}

type identityKeyParams struct {
	Provider string `json:"provider"`
	Label    string `json:"label"`
	Sub      string `json:"sub"`
}

// identityDelete removes one identity. When it was the account's last
// identity the store cascades into deleting the account itself; in that
// case the policies and graph edges naming that account's own uri as
// subject no longer have a principal behind them, so they are purged too.
func identityDelete(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p identityKeyParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, iamerr.BadRequest("invalid params: %v", err)
	}
	if p.Provider == "" || p.Sub == "" {
		return nil, iamerr.BadRequest("provider and sub are required")
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionIdentity, abac.OpDelete); err != nil {
		return nil, err
	}
	cascaded, accountID, err := deps.Store.DeleteIdentity(ctx, p.Provider, p.Label, p.Sub)
	if err != nil {
		return nil, err
	}
	if cascaded {
		if err := purgeAccountSubject(ctx, deps, accountID); err != nil {
			return nil, err
		}
	}
	return map[string]bool{"deleted": true, "account_deleted": cascaded}, nil
}

// purgeAccountSubject removes every policy and graph edge, within the
// serving namespace, whose subject composite is exactly this account's own
// "uri:account/<id>" attribute — the self-uri every token minted for that
// account carries as its subject.
func purgeAccountSubject(ctx context.Context, deps *Deps, accountID uuid.UUID) error {
	subject := abac.NewComposite(abac.AccountURI(deps.NamespaceID, accountID))

	policies, err := deps.Store.ListPolicies(ctx, deps.NamespaceID, 0, 0)
	if err != nil {
		return err
	}
	for _, p := range policies {
		if p.Subject.Equal(subject) {
			if err := deps.Store.DeletePolicy(ctx, deps.NamespaceID, p.ID); err != nil {
				return err
			}
		}
	}

	edges, err := deps.Store.ListEdges(ctx, abac.RelationSubject, deps.NamespaceID, 0, 0)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if e.Inbound.Equal(subject) {
			if err := deps.Store.DeleteEdge(ctx, abac.RelationSubject, deps.NamespaceID, e.Inbound, e.Outbound); err != nil {
				return err
			}
		}
	}
	return nil
}

type listIdentitiesParams struct {
	AccountID uuid.UUID `json:"account_id"`
	Limit     int       `json:"limit"`
	Offset    int       `json:"offset"`
}

func identityList(ctx context.Context, deps *Deps, caller Caller, raw json.RawMessage) (any, error) {
	var p listIdentitiesParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, iamerr.BadRequest("invalid params: %v", err)
		}
	}
	limit, err := clampLimit(deps, p.Limit)
	if err != nil {
		return nil, err
	}
	if err := requireGuard(ctx, deps, caller, deps.NamespaceID, abac.CollectionIdentity, abac.OpList); err != nil {
		return nil, err
	}
	identities, err := deps.Store.ListIdentities(ctx, p.AccountID, limit, p.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]identityDTO, len(identities))
	for i, id := range identities {
		out[i] = identityDTOOf(id)
	}
	return out, nil
}
