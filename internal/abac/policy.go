package abac

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Policy grants access to every subject in Subject's closure, acting on
// every object in Object's closure, via every action in Action's closure.
// A policy is a single specific composite per dimension; it is the graph's
// expansion, not the policy, that fans a policy out to everything it
// implicitly covers. The effective primary key is the four-tuple
// (NamespaceID, Subject, Object, Action); ID is a surrogate handle the RPC
// layer addresses reads/deletes by, not a substitute for that key.
type Policy struct {
	ID          uuid.UUID
	NamespaceID uuid.UUID
	Subject     Composite
	Object      Composite
	Action      Composite
	CreatedAt   time.Time
	// NotBefore and ExpiredAt bound the policy's validity window; either
	// may be nil to mean "no lower/upper bound".
	NotBefore *time.Time
	ExpiredAt *time.Time
}

// activeAt reports whether the policy is in effect at t: (not_before is nil
// or not_before <= t) and (expired_at is nil or t < expired_at).
func (p Policy) activeAt(t time.Time) bool {
	if p.NotBefore != nil && t.Before(*p.NotBefore) {
		return false
	}
	if p.ExpiredAt != nil && !t.Before(*p.ExpiredAt) {
		return false
	}
	return true
}

// PolicyStore persists policies scoped to a namespace.
type PolicyStore interface {
	// CreatePolicy inserts p, returning a Conflict error if a policy with
	// the same (namespace_id, subject, object, action) already exists.
	CreatePolicy(ctx context.Context, p Policy) (Policy, error)
	GetPolicy(ctx context.Context, namespaceID, id uuid.UUID) (*Policy, error)
	// FindPolicy looks up a policy by its full primary key, returning nil
	// if none exists.
	FindPolicy(ctx context.Context, namespaceID uuid.UUID, subject, object, action Composite) (*Policy, error)
	ListPolicies(ctx context.Context, namespaceID uuid.UUID, limit, offset int) ([]Policy, error)
	DeletePolicy(ctx context.Context, namespaceID, id uuid.UUID) error
	// DeletePolicyByKey deletes the policy matching the full primary key, a
	// no-op if none exists.
	DeletePolicyByKey(ctx context.Context, namespaceID uuid.UUID, subject, object, action Composite) error
}
