package rpc

import (
	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/config"
	registrystore "github.com/netology-group/iam/internal/registry/store"
)

// Deps bundles everything a handler needs to do its work: the guarded
// store, the evaluator the free-standing authorize method reaches
// directly, and the resolved configuration (namespace id, pagination
// ceilings).
type Deps struct {
	Store       registrystore.IAMStore
	Evaluator   *abac.Evaluator
	Guard       *abac.Guard
	Config      *config.Config
	NamespaceID uuid.UUID
}

// Caller describes the authenticated (or anonymous) subject of one
// dispatch: Authenticated is false when the request carried no
// Authorization header at all (see security.OptionalAuthMiddleware).
type Caller struct {
	AccountID     uuid.UUID
	Authenticated bool
}

// Composite renders the caller as the subject composite the guard
// synthesizes every check against.
func (c Caller) Composite(namespaceID uuid.UUID) abac.Composite {
	return abac.NewComposite(abac.AccountURI(namespaceID, c.AccountID))
}
