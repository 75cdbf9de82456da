package rpc

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/bootstrap"
	"github.com/netology-group/iam/internal/config"
)

// testHarness wires a fakeStore, a seeded admin account, and Deps the way
// cmd/serve/server.go does in production, minus the HTTP plumbing.
type testHarness struct {
	deps        *Deps
	store       *fakeStore
	namespaceID uuid.UUID
	adminID     uuid.UUID
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	store := newFakeStore()
	namespaceID := uuid.New()
	adminID := uuid.New()

	seed := &bootstrap.Seed{
		Store:          store,
		NamespaceID:    namespaceID,
		NamespaceLabel: "iam",
		AdminAccountID: adminID,
	}
	require.NoError(t, seed.Run(context.Background()))

	cfg := config.DefaultConfig()
	evaluator := &abac.Evaluator{Subjects: store, Objects: store, Actions: store, Policies: store}
	guard := abac.NewGuard(evaluator, namespaceID)

	deps := &Deps{
		Store:       store,
		Evaluator:   evaluator,
		Guard:       guard,
		Config:      &cfg,
		NamespaceID: namespaceID,
	}
	return &testHarness{deps: deps, store: store, namespaceID: namespaceID, adminID: adminID}
}

func (h *testHarness) admin() Caller {
	return Caller{AccountID: h.adminID, Authenticated: true}
}

func (h *testHarness) anonymous() Caller {
	return Caller{Authenticated: false}
}

func (h *testHarness) stranger() Caller {
	return Caller{AccountID: uuid.New(), Authenticated: true}
}
