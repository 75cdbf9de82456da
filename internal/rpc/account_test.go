package rpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/netology-group/iam/internal/iamerr"
)

func TestAccountCreateReadUpdateDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	createParams, err := json.Marshal(createAccountParams{NamespaceID: h.namespaceID})
	require.NoError(t, err)
	res, err := accountCreate(ctx, h.deps, h.admin(), createParams)
	require.NoError(t, err)
	dto := res.(accountDTO)
	require.NotEqual(t, uuid.Nil, dto.ID)
	require.Nil(t, dto.DisabledAt)

	readParams, err := json.Marshal(accountIDParams{ID: dto.ID})
	require.NoError(t, err)
	res, err = accountRead(ctx, h.deps, h.admin(), readParams)
	require.NoError(t, err)
	require.Equal(t, dto.ID, res.(accountDTO).ID)

	disabled := true
	updateParams, err := json.Marshal(updateAccountParams{ID: dto.ID, Disabled: &disabled})
	require.NoError(t, err)
	res, err = accountUpdate(ctx, h.deps, h.admin(), updateParams)
	require.NoError(t, err)
	require.NotNil(t, res.(accountDTO).DisabledAt)

	_, err = accountDelete(ctx, h.deps, h.admin(), readParams)
	require.NoError(t, err)

	_, err = accountRead(ctx, h.deps, h.admin(), readParams)
	require.Equal(t, iamerr.KindNotFound, iamerr.As(err))
}

func TestAccountRead_AnonymousForbidden(t *testing.T) {
	h := newHarness(t)
	params, err := json.Marshal(accountIDParams{ID: uuid.New()})
	require.NoError(t, err)

	_, err = accountRead(context.Background(), h.deps, h.anonymous(), params)
	require.Equal(t, iamerr.KindForbidden, iamerr.As(err))
}

func TestAccountCreate_StrangerForbidden(t *testing.T) {
	h := newHarness(t)
	params, err := json.Marshal(createAccountParams{NamespaceID: h.namespaceID})
	require.NoError(t, err)

	_, err = accountCreate(context.Background(), h.deps, h.stranger(), params)
	require.Equal(t, iamerr.KindForbidden, iamerr.As(err))
}

func TestAccountCreate_MissingNamespaceIsBadRequest(t *testing.T) {
	h := newHarness(t)
	params, err := json.Marshal(createAccountParams{})
	require.NoError(t, err)

	_, err = accountCreate(context.Background(), h.deps, h.admin(), params)
	require.Equal(t, iamerr.KindBadRequest, iamerr.As(err))
}

func TestAccountList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	createParams, err := json.Marshal(createAccountParams{NamespaceID: h.namespaceID})
	require.NoError(t, err)
	_, err = accountCreate(ctx, h.deps, h.admin(), createParams)
	require.NoError(t, err)

	listParams, err := json.Marshal(listAccountsParams{NamespaceID: h.namespaceID})
	require.NoError(t, err)
	res, err := accountList(ctx, h.deps, h.admin(), listParams)
	require.NoError(t, err)
	// one account seeded by bootstrap (the admin) plus the one created above.
	require.Len(t, res.([]accountDTO), 2)
}
