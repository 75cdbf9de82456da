// Package abac implements the attribute-based access control graph: the
// attribute/composite value types, the subject/object/action relation
// graph and its transitive expansion, policy matching, the authorization
// evaluator, and the self-governed mutation guard that sits in front of
// every collection the graph exposes.
package abac

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Well-known attribute keys. A triple's Key names the dimension being
// asserted; Value is free text scoped to that dimension.
const (
	KeyURI       = "uri"
	KeyType      = "type"
	KeyOperation = "operation"
)

// Collection names: every ABAC-governed table is identified by one of these
// when synthesizing a guard query.
const (
	CollectionAccount     = "account"
	CollectionIdentity    = "identity"
	CollectionNamespace   = "namespace"
	CollectionAbacSubject = "abac_subject"
	CollectionAbacObject  = "abac_object"
	CollectionAbacAction  = "abac_action"
	CollectionAbacPolicy  = "abac_policy"
)

// Operation names: the verb half of a guard query and the value half of an
// abac_action "operation" attribute.
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpAny    = "any"
)

// Attribute is a single (namespace_id, key, value) triple. NamespaceID scopes
// the triple to one ABAC namespace; two triples with the same Key/Value but
// different NamespaceID are unrelated.
type Attribute struct {
	NamespaceID uuid.UUID
	Key         string
	Value       string
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s/%s/%s", a.NamespaceID, a.Key, a.Value)
}

// Equal reports whether a and b name the same triple.
func (a Attribute) Equal(b Attribute) bool {
	return a.NamespaceID == b.NamespaceID && a.Key == b.Key && a.Value == b.Value
}

// Composite is an ordered set of attributes describing one subject, object,
// or action. Order does not carry meaning to the evaluator — Composite
// normalizes it on construction so two composites built from the same set
// in different orders compare equal.
type Composite []Attribute

// NewComposite returns attrs sorted into canonical order.
func NewComposite(attrs ...Attribute) Composite {
	c := make(Composite, len(attrs))
	copy(c, attrs)
	sort.Slice(c, func(i, j int) bool {
		if c[i].NamespaceID != c[j].NamespaceID {
			return c[i].NamespaceID.String() < c[j].NamespaceID.String()
		}
		if c[i].Key != c[j].Key {
			return c[i].Key < c[j].Key
		}
		return c[i].Value < c[j].Value
	})
	return c
}

// Equal reports whether c and other contain the same attributes, ignoring
// order.
func (c Composite) Equal(other Composite) bool {
	if len(c) != len(other) {
		return false
	}
	a, b := NewComposite(c...), NewComposite(other...)
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Contains reports whether every attribute in subset also appears in c —
// the subset-intersection test a policy match and a guard decision both
// reduce to.
func (c Composite) Contains(subset Composite) bool {
	for _, want := range subset {
		found := false
		for _, have := range c {
			if have.Equal(want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AccountURI builds the "uri: account/<id>" attribute identifying an
// account within namespace ns.
func AccountURI(ns, accountID uuid.UUID) Attribute {
	return Attribute{NamespaceID: ns, Key: KeyURI, Value: "account/" + accountID.String()}
}

// NamespaceURI builds the "uri: namespace/<id>" attribute identifying a
// namespace within namespace ns (a namespace may describe itself or
// another namespace it is related to).
func NamespaceURI(ns, namespaceID uuid.UUID) Attribute {
	return Attribute{NamespaceID: ns, Key: KeyURI, Value: "namespace/" + namespaceID.String()}
}

// IdentityURI builds the "uri: identity/<primary-key>" attribute
// identifying a third-party identity by its composite primary key
// ("<sub>.<label>.<provider>").
func IdentityURI(ns uuid.UUID, primaryKey string) Attribute {
	return Attribute{NamespaceID: ns, Key: KeyURI, Value: "identity/" + primaryKey}
}

// CollectionType builds the "type: <collection>" attribute naming one of
// the ABAC-governed collections.
func CollectionType(ns uuid.UUID, collection string) Attribute {
	return Attribute{NamespaceID: ns, Key: KeyType, Value: collection}
}

// Operation builds the "operation: <op>" attribute naming a CRUD verb.
func Operation(ns uuid.UUID, op string) Attribute {
	return Attribute{NamespaceID: ns, Key: KeyOperation, Value: op}
}
