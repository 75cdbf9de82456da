package rpc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
	"github.com/netology-group/iam/internal/model"
)

// fakeStore is an in-memory registrystore.IAMStore used by the RPC handler
// tests. It implements the graph/policy/expansion/authn/admin surfaces with
// plain maps — no SQL, no GORM — mirroring the shape of
// internal/abac.GraphExpander's own in-memory reference semantics rather
// than internal/store's production SQL path.
type fakeStore struct {
	edges       map[abac.Relation][]abac.Edge
	policies    []abac.Policy
	namespaces  map[uuid.UUID]model.Namespace
	accounts    map[uuid.UUID]model.Account
	identities  map[string]model.Identity
	refreshToks map[uuid.UUID]model.RefreshTokenRecord
	expander    *abac.GraphExpander
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		edges:       map[abac.Relation][]abac.Edge{},
		namespaces:  map[uuid.UUID]model.Namespace{},
		accounts:    map[uuid.UUID]model.Account{},
		identities:  map[string]model.Identity{},
		refreshToks: map[uuid.UUID]model.RefreshTokenRecord{},
	}
	s.expander = &abac.GraphExpander{Store: s, MaxDepth: 16, MaxRows: 10000}
	return s
}

// --- abac.GraphStore ---

func (s *fakeStore) InsertEdge(ctx context.Context, relation abac.Relation, edge abac.Edge) error {
	existing, err := s.FindEdges(ctx, relation, edge.NamespaceID, edge.Inbound)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Outbound.Equal(edge.Outbound) {
			return nil
		}
	}
	s.edges[relation] = append(s.edges[relation], edge)
	return nil
}

func (s *fakeStore) DeleteEdge(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, inbound, outbound abac.Composite) error {
	kept := s.edges[relation][:0]
	for _, e := range s.edges[relation] {
		if e.NamespaceID == namespaceID && e.Inbound.Equal(inbound) && e.Outbound.Equal(outbound) {
			continue
		}
		kept = append(kept, e)
	}
	s.edges[relation] = kept
	return nil
}

func (s *fakeStore) ListEdges(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, limit, offset int) ([]abac.Edge, error) {
	var out []abac.Edge
	for _, e := range s.edges[relation] {
		if e.NamespaceID == namespaceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) FindEdges(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, inbound abac.Composite) ([]abac.Edge, error) {
	var out []abac.Edge
	for _, e := range s.edges[relation] {
		if e.NamespaceID == namespaceID && e.Inbound.Equal(inbound) {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- abac.PolicyStore ---

func (s *fakeStore) CreatePolicy(ctx context.Context, p abac.Policy) (abac.Policy, error) {
	existing, err := s.FindPolicy(ctx, p.NamespaceID, p.Subject, p.Object, p.Action)
	if err != nil {
		return abac.Policy{}, err
	}
	if existing != nil {
		return abac.Policy{}, iamerr.Conflict("policy already exists")
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	s.policies = append(s.policies, p)
	return p, nil
}

func (s *fakeStore) FindPolicy(ctx context.Context, namespaceID uuid.UUID, subject, object, action abac.Composite) (*abac.Policy, error) {
	for _, p := range s.policies {
		if p.NamespaceID == namespaceID && p.Subject.Equal(subject) && p.Object.Equal(object) && p.Action.Equal(action) {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) DeletePolicyByKey(ctx context.Context, namespaceID uuid.UUID, subject, object, action abac.Composite) error {
	kept := s.policies[:0]
	for _, p := range s.policies {
		if p.NamespaceID == namespaceID && p.Subject.Equal(subject) && p.Object.Equal(object) && p.Action.Equal(action) {
			continue
		}
		kept = append(kept, p)
	}
	s.policies = kept
	return nil
}

func (s *fakeStore) GetPolicy(ctx context.Context, namespaceID, id uuid.UUID) (*abac.Policy, error) {
	for _, p := range s.policies {
		if p.NamespaceID == namespaceID && p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListPolicies(ctx context.Context, namespaceID uuid.UUID, limit, offset int) ([]abac.Policy, error) {
	var out []abac.Policy
	for _, p := range s.policies {
		if p.NamespaceID == namespaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) DeletePolicy(ctx context.Context, namespaceID, id uuid.UUID) error {
	kept := s.policies[:0]
	for _, p := range s.policies {
		if p.NamespaceID == namespaceID && p.ID == id {
			continue
		}
		kept = append(kept, p)
	}
	s.policies = kept
	return nil
}

// --- abac.Expander ---

func (s *fakeStore) Expand(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, seed abac.Composite) ([]abac.Composite, error) {
	return s.expander.Expand(ctx, relation, namespaceID, seed)
}

// --- authn.Store ---

func (s *fakeStore) UpsertIdentity(ctx context.Context, provider, label, sub string) (model.Identity, error) {
	key := sub + "." + label + "." + provider
	if existing, ok := s.identities[key]; ok {
		return existing, nil
	}
	identity := model.Identity{Provider: provider, Label: label, Sub: sub, AccountID: uuid.New(), CreatedAt: time.Now()}
	s.identities[key] = identity
	return identity, nil
}

func (s *fakeStore) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := a
	return &cp, nil
}

func (s *fakeStore) GetNamespaceByLabel(ctx context.Context, label string) (*model.Namespace, error) {
	for _, n := range s.namespaces {
		if n.Label == label {
			cp := n
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetRefreshTokens(ctx context.Context, accountID uuid.UUID) (*model.RefreshTokenRecord, error) {
	rec, ok := s.refreshToks[accountID]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (s *fakeStore) PutRefreshTokens(ctx context.Context, rec model.RefreshTokenRecord) error {
	s.refreshToks[rec.AccountID] = rec
	return nil
}

// --- AdminStore ---

func (s *fakeStore) CreateNamespace(ctx context.Context, label string) (model.Namespace, error) {
	ns := model.Namespace{ID: uuid.New(), Label: label, CreatedAt: time.Now()}
	s.namespaces[ns.ID] = ns
	return ns, nil
}

func (s *fakeStore) EnsureNamespace(ctx context.Context, id uuid.UUID, label string) (model.Namespace, error) {
	if ns, ok := s.namespaces[id]; ok {
		return ns, nil
	}
	ns := model.Namespace{ID: id, Label: label, CreatedAt: time.Now()}
	s.namespaces[id] = ns
	return ns, nil
}

func (s *fakeStore) GetNamespace(ctx context.Context, id uuid.UUID) (*model.Namespace, error) {
	ns, ok := s.namespaces[id]
	if !ok {
		return nil, nil
	}
	cp := ns
	return &cp, nil
}

func (s *fakeStore) ListNamespaces(ctx context.Context, limit, offset int) ([]model.Namespace, error) {
	var out []model.Namespace
	for _, n := range s.namespaces {
		out = append(out, n)
	}
	return out, nil
}

func (s *fakeStore) SoftDeleteNamespace(ctx context.Context, id uuid.UUID) error {
	ns, ok := s.namespaces[id]
	if !ok {
		return iamerr.NotFound("namespace not found")
	}
	now := time.Now()
	ns.DeletedAt = &now
	s.namespaces[id] = ns
	return nil
}

func (s *fakeStore) CreateAccount(ctx context.Context, namespaceID uuid.UUID) (model.Account, error) {
	a := model.Account{ID: uuid.New(), NamespaceID: namespaceID, CreatedAt: time.Now()}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *fakeStore) EnsureAccount(ctx context.Context, id, namespaceID uuid.UUID) (model.Account, error) {
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	a := model.Account{ID: id, NamespaceID: namespaceID, CreatedAt: time.Now()}
	s.accounts[id] = a
	return a, nil
}

func (s *fakeStore) ListAccounts(ctx context.Context, namespaceID uuid.UUID, limit, offset int) ([]model.Account, error) {
	var out []model.Account
	for _, a := range s.accounts {
		if a.NamespaceID == namespaceID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) SetAccountDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	a, ok := s.accounts[id]
	if !ok {
		return iamerr.NotFound("account not found")
	}
	if disabled {
		now := time.Now()
		a.DisabledAt = &now
	} else {
		a.DisabledAt = nil
	}
	s.accounts[id] = a
	return nil
}

func (s *fakeStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.accounts[id]; !ok {
		return iamerr.NotFound("account not found")
	}
	delete(s.accounts, id)
	for k, ident := range s.identities {
		if ident.AccountID == id {
			delete(s.identities, k)
		}
	}
	delete(s.refreshToks, id)
	return nil
}

func (s *fakeStore) CreateIdentity(ctx context.Context, identity model.Identity) error {
	identity.CreatedAt = time.Now()
	s.identities[identity.PrimaryKey()] = identity
	return nil
}

func (s *fakeStore) ListIdentities(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Identity, error) {
	var out []model.Identity
	for _, ident := range s.identities {
		if ident.AccountID == accountID {
			out = append(out, ident)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteIdentity(ctx context.Context, provider, label, sub string) (bool, uuid.UUID, error) {
	key := sub + "." + label + "." + provider
	ident, ok := s.identities[key]
	if !ok {
		return false, uuid.Nil, iamerr.NotFound("identity not found")
	}
	delete(s.identities, key)

	for _, other := range s.identities {
		if other.AccountID == ident.AccountID {
			return false, uuid.Nil, nil
		}
	}
	delete(s.accounts, ident.AccountID)
	delete(s.refreshToks, ident.AccountID)
	return true, ident.AccountID, nil
}

func (s *fakeStore) Close() error { return nil }
