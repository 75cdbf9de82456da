// Package store defines the storage backend plugin registry: the IAMStore
// interface every backend must satisfy and the Name-keyed Loader registry
// cmd/serve and cmd/seed select from. internal/store registers the only
// backend today, "postgres".
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/authn"
	"github.com/netology-group/iam/internal/model"
)

// IAMStore aggregates every persistence interface the service depends on
// behind one handle: the ABAC graph and policy tables, the account/identity/
// namespace registry, and lifecycle management. internal/store's Postgres
// implementation is the only plugin registered today.
type IAMStore interface {
	abac.GraphStore
	abac.PolicyStore
	abac.Expander
	authn.Store

	// AdminStore covers the account/identity/namespace entity methods the
	// RPC dispatcher (internal/rpc) exposes beyond what authn.Store needs
	// for the token flows: lookups, listings, and the disable/soft-delete/
	// cascade-delete lifecycle operations from spec.md §4.6.
	AdminStore

	Close() error
}

// AdminStore is the registry-administration surface: everything
// internal/rpc's account/identity/namespace entity handlers need beyond
// the token-flow-facing authn.Store methods.
type AdminStore interface {
	CreateNamespace(ctx context.Context, label string) (model.Namespace, error)
	// EnsureNamespace upserts a namespace row at a caller-chosen id, a
	// no-op if it already exists. internal/bootstrap is the only caller:
	// the IAM namespace's own id is a fixed, externally configured value,
	// unlike CreateNamespace's caller-opaque generated id.
	EnsureNamespace(ctx context.Context, id uuid.UUID, label string) (model.Namespace, error)
	GetNamespace(ctx context.Context, id uuid.UUID) (*model.Namespace, error)
	ListNamespaces(ctx context.Context, limit, offset int) ([]model.Namespace, error)
	SoftDeleteNamespace(ctx context.Context, id uuid.UUID) error

	CreateAccount(ctx context.Context, namespaceID uuid.UUID) (model.Account, error)
	// EnsureAccount upserts an account row at a caller-chosen id, a no-op
	// if it already exists — internal/bootstrap's fixed-id admin account.
	EnsureAccount(ctx context.Context, id, namespaceID uuid.UUID) (model.Account, error)
	ListAccounts(ctx context.Context, namespaceID uuid.UUID, limit, offset int) ([]model.Account, error)
	SetAccountDisabled(ctx context.Context, id uuid.UUID, disabled bool) error
	// DeleteAccount hard-deletes an account directly (an administrative
	// force-delete), cascading its identities and refresh-token record in
	// the same transaction. This is distinct from the implicit cascade
	// DeleteIdentity performs when removing the last identity — that path
	// starts from the identity side; this one starts from the account
	// side, for an operator deleting an account outright.
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	// CreateIdentity links a third-party (provider, label, sub) to an
	// existing account directly — the administrative counterpart to
	// authn.IdentityStore's UpsertIdentity, which only ever provisions a
	// fresh account for an unseen triple.
	CreateIdentity(ctx context.Context, identity model.Identity) error
	ListIdentities(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Identity, error)
	// DeleteIdentity removes one identity. If it was the account's last
	// identity, the account and its refresh-token record are deleted in
	// the same transaction and accountDeleted reports true with the
	// deleted account's id, so the caller (internal/rpc, which alone knows
	// the IAM namespace id) can follow up with the policy/edge purge
	// spec.md §4.6 describes for that account's self-uri.
	DeleteIdentity(ctx context.Context, provider, label, sub string) (accountDeleted bool, accountID uuid.UUID, err error)
}

// Loader opens an IAMStore from the resolved configuration.
type Loader func(ctx context.Context) (IAMStore, error)

// Plugin names a storage backend and how to open it.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin. Called from init() in backend packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
