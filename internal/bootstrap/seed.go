// Package bootstrap seeds a fresh IAM namespace with the minimum set of
// graph edges and policies that let an admin account govern the rest of
// the ABAC graph through the ordinary, guarded RPC surface. Every write
// here goes straight to the store, bypassing internal/abac.Guard: the
// guard consults policies that do not exist yet on a fresh namespace, so
// nothing could ever pass it. This is the one place in the service
// authorized to write these tables without a guard check.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
	registrystore "github.com/netology-group/iam/internal/registry/store"
)

// operations lists the specific verbs seeded as pointing at "any" in the
// action relation. "tree" is deliberately absent: internal/rpc aliases
// every *.tree method to the same guard check as *.list (see
// internal/rpc/attrs.go), so no separate operation node is needed for it.
var operations = []string{abac.OpCreate, abac.OpRead, abac.OpUpdate, abac.OpDelete, abac.OpList}

// collections lists every ABAC-governed collection a fresh namespace needs
// a type node and an admin grant for.
var collections = []string{
	abac.CollectionAccount,
	abac.CollectionIdentity,
	abac.CollectionNamespace,
	abac.CollectionAbacSubject,
	abac.CollectionAbacObject,
	abac.CollectionAbacAction,
	abac.CollectionAbacPolicy,
}

// Seed describes one bootstrap run: the namespace to seed and the admin
// account it grants total self-referential and collection-wide rights to.
type Seed struct {
	Store          registrystore.IAMStore
	NamespaceID    uuid.UUID
	NamespaceLabel string
	AdminAccountID uuid.UUID
}

// Run ensures the namespace and admin account rows exist, then seeds the
// collection-type object nodes, the admin's policies, and the
// operation-to-"any" action edges (spec.md §4.9). It is safe to run more
// than once: edges are idempotent by construction (abac.GraphStore) and
// policies are only created when an equal one is not already present.
func (s *Seed) Run(ctx context.Context) error {
	if _, err := s.Store.EnsureNamespace(ctx, s.NamespaceID, s.NamespaceLabel); err != nil {
		return fmt.Errorf("bootstrap: ensure namespace: %w", err)
	}
	if _, err := s.Store.EnsureAccount(ctx, s.AdminAccountID, s.NamespaceID); err != nil {
		return fmt.Errorf("bootstrap: ensure admin account: %w", err)
	}

	nsURI := abac.NewComposite(abac.NamespaceURI(s.NamespaceID, s.NamespaceID))
	for _, collection := range collections {
		typeNode := abac.NewComposite(abac.CollectionType(s.NamespaceID, collection))
		edge := abac.Edge{NamespaceID: s.NamespaceID, Inbound: typeNode, Outbound: nsURI}
		if err := s.Store.InsertEdge(ctx, abac.RelationObject, edge); err != nil {
			return fmt.Errorf("bootstrap: seed %s type node: %w", collection, err)
		}
	}

	for _, op := range operations {
		edge := abac.Edge{
			NamespaceID: s.NamespaceID,
			Inbound:     abac.NewComposite(abac.Operation(s.NamespaceID, op)),
			Outbound:    abac.NewComposite(abac.Operation(s.NamespaceID, abac.OpAny)),
		}
		if err := s.Store.InsertEdge(ctx, abac.RelationAction, edge); err != nil {
			return fmt.Errorf("bootstrap: seed operation node %q: %w", op, err)
		}
	}

	adminURI := abac.NewComposite(abac.AccountURI(s.NamespaceID, s.AdminAccountID))
	anyAction := abac.NewComposite(abac.Operation(s.NamespaceID, abac.OpAny))

	if err := s.ensurePolicy(ctx, adminURI, adminURI, anyAction); err != nil {
		return fmt.Errorf("bootstrap: seed self-referential admin policy: %w", err)
	}
	for _, collection := range collections {
		object := abac.NewComposite(abac.CollectionType(s.NamespaceID, collection))
		if err := s.ensurePolicy(ctx, adminURI, object, anyAction); err != nil {
			return fmt.Errorf("bootstrap: seed admin policy for %s: %w", collection, err)
		}
	}
	return nil
}

// ensurePolicy creates a policy for (namespace, subject, object, action),
// tolerating Conflict since abac.PolicyStore.CreatePolicy rejects a repeat of
// the same four-tuple and a repeat bootstrap run must stay a no-op.
func (s *Seed) ensurePolicy(ctx context.Context, subject, object, action abac.Composite) error {
	_, err := s.Store.CreatePolicy(ctx, abac.Policy{
		NamespaceID: s.NamespaceID,
		Subject:     subject,
		Object:      object,
		Action:      action,
	})
	if iamerr.As(err) == iamerr.KindConflict {
		return nil
	}
	return err
}
