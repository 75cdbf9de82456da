package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
	"github.com/netology-group/iam/internal/model"
)

// fakeStore is a minimal in-memory registrystore.IAMStore used only to drive
// Seed.Run. The authn.Store methods it carries are never exercised here but
// must exist to satisfy the interface.
type fakeStore struct {
	edges      map[abac.Relation][]abac.Edge
	policies   []abac.Policy
	namespaces map[uuid.UUID]model.Namespace
	accounts   map[uuid.UUID]model.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		edges:      map[abac.Relation][]abac.Edge{},
		namespaces: map[uuid.UUID]model.Namespace{},
		accounts:   map[uuid.UUID]model.Account{},
	}
}

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

func (s *fakeStore) Expand(ctx context.Context, relation abac.Relation, namespaceID uuid.UUID, seed abac.Composite) ([]abac.Composite, error) {
	e := &abac.GraphExpander{Store: s, MaxDepth: 16, MaxRows: 10000}
	return e.Expand(ctx, relation, namespaceID, seed)
}

func (s *fakeStore) UpsertIdentity(ctx context.Context, provider, label, sub string) (model.Identity, error) {
	return model.Identity{}, nil
}
func (s *fakeStore) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}
func (s *fakeStore) GetNamespaceByLabel(ctx context.Context, label string) (*model.Namespace, error) {
	return nil, nil
}
func (s *fakeStore) GetRefreshTokens(ctx context.Context, accountID uuid.UUID) (*model.RefreshTokenRecord, error) {
	return nil, nil
}
func (s *fakeStore) PutRefreshTokens(ctx context.Context, rec model.RefreshTokenRecord) error {
	return nil
}

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
	return &ns, nil
}

func (s *fakeStore) ListNamespaces(ctx context.Context, limit, offset int) ([]model.Namespace, error) {
	var out []model.Namespace
	for _, n := range s.namespaces {
		out = append(out, n)
	}
	return out, nil
}

func (s *fakeStore) SoftDeleteNamespace(ctx context.Context, id uuid.UUID) error { return nil }

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
	return nil, nil
}
func (s *fakeStore) SetAccountDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	return nil
}
func (s *fakeStore) DeleteAccount(ctx context.Context, id uuid.UUID) error { return nil }

func (s *fakeStore) CreateIdentity(ctx context.Context, identity model.Identity) error { return nil }
func (s *fakeStore) ListIdentities(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Identity, error) {
	return nil, nil
}
func (s *fakeStore) DeleteIdentity(ctx context.Context, provider, label, sub string) (bool, uuid.UUID, error) {
	return false, uuid.Nil, nil
}

func (s *fakeStore) Close() error { return nil }

func TestSeedRun_CreatesExpectedEdgesAndPolicies(t *testing.T) {
	store := newFakeStore()
	namespaceID := uuid.New()
	adminID := uuid.New()
	seed := &Seed{Store: store, NamespaceID: namespaceID, NamespaceLabel: "iam", AdminAccountID: adminID}

	require.NoError(t, seed.Run(context.Background()))

	require.Len(t, store.edges[abac.RelationObject], len(collections))
	require.Len(t, store.edges[abac.RelationAction], len(operations))
	// one self-referential admin policy plus one per collection.
	require.Len(t, store.policies, 1+len(collections))

	ns, err := store.GetNamespace(context.Background(), namespaceID)
	require.NoError(t, err)
	require.Equal(t, "iam", ns.Label)

	account, err := store.GetAccount(context.Background(), adminID)
	require.NoError(t, err)
	require.Equal(t, namespaceID, account.NamespaceID)
}

func TestSeedRun_IsIdempotent(t *testing.T) {
	store := newFakeStore()
	namespaceID := uuid.New()
	adminID := uuid.New()
	seed := &Seed{Store: store, NamespaceID: namespaceID, NamespaceLabel: "iam", AdminAccountID: adminID}

	require.NoError(t, seed.Run(context.Background()))
	require.NoError(t, seed.Run(context.Background()))

	require.Len(t, store.edges[abac.RelationObject], len(collections))
	require.Len(t, store.edges[abac.RelationAction], len(operations))
	require.Len(t, store.policies, 1+len(collections))
}
