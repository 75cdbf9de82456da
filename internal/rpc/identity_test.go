package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
)

func TestIdentityCreateAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	account, err := h.store.CreateAccount(ctx, h.namespaceID)
	require.NoError(t, err)
	accountID := account.ID

	createParams, err := json.Marshal(createIdentityParams{
		Provider: "google", Label: "default", Sub: "abc123", AccountID: accountID,
	})
	require.NoError(t, err)
	res, err := identityCreate(ctx, h.deps, h.admin(), createParams)
	require.NoError(t, err)
	require.Equal(t, "google", res.(identityDTO).Provider)

	listParams, err := json.Marshal(listIdentitiesParams{AccountID: accountID})
	require.NoError(t, err)
	listRes, err := identityList(ctx, h.deps, h.admin(), listParams)
	require.NoError(t, err)
	require.Len(t, listRes.([]identityDTO), 1)
}

func TestIdentityCreate_MissingFieldsIsBadRequest(t *testing.T) {
	h := newHarness(t)
	params, err := json.Marshal(createIdentityParams{})
	require.NoError(t, err)
	_, err = identityCreate(context.Background(), h.deps, h.admin(), params)
	require.Equal(t, iamerr.KindBadRequest, iamerr.As(err))
}

// TestIdentityDelete_CascadePurgesAccountSubject exercises the last-identity
// cascade: deleting an account's only identity must remove the account's
// own self-uri from both the policy table and the subject edge relation,
// not just the identity row.
func TestIdentityDelete_CascadePurgesAccountSubject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	account, err := h.store.CreateAccount(ctx, h.namespaceID)
	require.NoError(t, err)
	accountID := account.ID

	createParams, err := json.Marshal(createIdentityParams{
		Provider: "google", Label: "default", Sub: "solo-user", AccountID: accountID,
	})
	require.NoError(t, err)
	_, err = identityCreate(ctx, h.deps, h.admin(), createParams)
	require.NoError(t, err)

	subject := abac.NewComposite(abac.AccountURI(h.namespaceID, accountID))
	_, err = h.store.CreatePolicy(ctx, abac.Policy{
		NamespaceID: h.namespaceID,
		Subject:     subject,
		Object:      abac.NewComposite(abac.CollectionType(h.namespaceID, abac.CollectionAccount)),
		Action:      abac.NewComposite(abac.Operation(h.namespaceID, abac.OpAny)),
	})
	require.NoError(t, err)
	require.NoError(t, h.store.InsertEdge(ctx, abac.RelationSubject, abac.Edge{
		NamespaceID: h.namespaceID,
		Inbound:     subject,
		Outbound:    abac.NewComposite(abac.AccountURI(h.namespaceID, h.adminID)),
	}))

	deleteParams, err := json.Marshal(identityKeyParams{Provider: "google", Label: "default", Sub: "solo-user"})
	require.NoError(t, err)
	res, err := identityDelete(ctx, h.deps, h.admin(), deleteParams)
	require.NoError(t, err)
	require.True(t, res.(map[string]bool)["account_deleted"])

	remaining, err := h.store.ListPolicies(ctx, h.namespaceID, 0, 0)
	require.NoError(t, err)
	for _, p := range remaining {
		require.False(t, p.Subject.Equal(subject), "policy naming the deleted account's self-uri must be purged")
	}

	edges, err := h.store.ListEdges(ctx, abac.RelationSubject, h.namespaceID, 0, 0)
	require.NoError(t, err)
	for _, e := range edges {
		require.False(t, e.Inbound.Equal(subject), "subject edge naming the deleted account's self-uri must be purged")
	}
}

func TestIdentityDelete_AnonymousForbidden(t *testing.T) {
	h := newHarness(t)
	params, err := json.Marshal(identityKeyParams{Provider: "google", Sub: "x"})
	require.NoError(t, err)
	_, err = identityDelete(context.Background(), h.deps, h.anonymous(), params)
	require.Equal(t, iamerr.KindForbidden, iamerr.As(err))
}
