package serve

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/require"

	"github.com/netology-group/iam/internal/authn"
	"github.com/netology-group/iam/internal/model"
)

// fakeAuthnStore is a minimal in-memory authn.Store backing the token
// handler tests — no database, mirroring internal/authn's own Store
// interface rather than internal/store's GORM implementation.
type fakeAuthnStore struct {
	namespaces map[string]model.Namespace
	identities map[string]model.Identity
	accounts   map[uuid.UUID]model.Account
	refresh    map[uuid.UUID]model.RefreshTokenRecord
}

func newFakeAuthnStore(namespaceLabel string) *fakeAuthnStore {
	return &fakeAuthnStore{
		namespaces: map[string]model.Namespace{namespaceLabel: {ID: uuid.New(), Label: namespaceLabel, CreatedAt: time.Now()}},
		identities: map[string]model.Identity{},
		accounts:   map[uuid.UUID]model.Account{},
		refresh:    map[uuid.UUID]model.RefreshTokenRecord{},
	}
}

func (s *fakeAuthnStore) UpsertIdentity(ctx context.Context, provider, label, sub string) (model.Identity, error) {
	key := sub + "." + label + "." + provider
	if ident, ok := s.identities[key]; ok {
		return ident, nil
	}
	account := model.Account{ID: uuid.New(), CreatedAt: time.Now()}
	s.accounts[account.ID] = account
	ident := model.Identity{Provider: provider, Label: label, Sub: sub, AccountID: account.ID, CreatedAt: time.Now()}
	s.identities[key] = ident
	return ident, nil
}

func (s *fakeAuthnStore) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *fakeAuthnStore) GetNamespaceByLabel(ctx context.Context, label string) (*model.Namespace, error) {
	ns, ok := s.namespaces[label]
	if !ok {
		return nil, nil
	}
	return &ns, nil
}

func (s *fakeAuthnStore) GetRefreshTokens(ctx context.Context, accountID uuid.UUID) (*model.RefreshTokenRecord, error) {
	rec, ok := s.refresh[accountID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *fakeAuthnStore) PutRefreshTokens(ctx context.Context, rec model.RefreshTokenRecord) error {
	s.refresh[rec.AccountID] = rec
	return nil
}

func signClientToken(t *testing.T, key *ecdsa.PrivateKey, sub string) string {
	t.Helper()
	tok, err := jwt.NewBuilder().Subject(sub).IssuedAt(time.Now()).Expiration(time.Now().Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), key))
	require.NoError(t, err)
	return string(signed)
}

func newTestTokenHandlers(t *testing.T) (*tokenHandlers, *ecdsa.PrivateKey, *fakeAuthnStore) {
	t.Helper()
	signingKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	providerKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	store := newFakeAuthnStore("google")
	flows := &authn.Flows{
		Store:            store,
		SigningKey:       signingKey,
		Issuer:           "iam.test",
		DefaultExpiresIn: time.Hour,
		MaxExpiresIn:     24 * time.Hour,
	}
	handlers := newTokenHandlers(flows, map[string]*ecdsa.PublicKey{
		"web.google": &providerKey.PublicKey,
	})
	return handlers, providerKey, store
}

func newRouter(h *tokenHandlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/:authKey/token", h.retrieve)
	r.POST("/accounts/:id/refresh", h.refresh)
	r.POST("/accounts/:id/revoke", h.revoke)
	return r
}

func TestRetrieve_MintsTokenPairAndProvisionsAccount(t *testing.T) {
	h, providerKey, store := newTestTokenHandlers(t)
	router := newRouter(h)

	clientToken := signClientToken(t, providerKey, "third-party-user-1")
	body, err := json.Marshal(retrieveRequest{GrantType: "client_token", ClientToken: clientToken})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/web.google/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.NotEmpty(t, resp["refresh_token"])
	require.Len(t, store.identities, 1)
}

func TestRetrieve_UnknownProviderIsBadRequest(t *testing.T) {
	h, providerKey, _ := newTestTokenHandlers(t)
	router := newRouter(h)

	clientToken := signClientToken(t, providerKey, "someone")
	body, err := json.Marshal(retrieveRequest{GrantType: "client_token", ClientToken: clientToken})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/ios.unknown/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshThenRevoke(t *testing.T) {
	h, providerKey, _ := newTestTokenHandlers(t)
	router := newRouter(h)

	clientToken := signClientToken(t, providerKey, "third-party-user-2")
	retrieveBody, err := json.Marshal(retrieveRequest{GrantType: "client_token", ClientToken: clientToken})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/web.google/token", bytes.NewReader(retrieveBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var tokens map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	refreshToken := tokens["refresh_token"].(string)

	refreshReq := httptest.NewRequest(http.MethodPost, "/accounts/me/refresh", nil)
	refreshReq.Header.Set("Authorization", "Bearer "+refreshToken)
	refreshRec := httptest.NewRecorder()
	router.ServeHTTP(refreshRec, refreshReq)
	require.Equal(t, http.StatusOK, refreshRec.Code)

	revokeReq := httptest.NewRequest(http.MethodPost, "/accounts/me/revoke", nil)
	revokeReq.Header.Set("Authorization", "Bearer "+refreshToken)
	revokeRec := httptest.NewRecorder()
	router.ServeHTTP(revokeRec, revokeReq)
	require.Equal(t, http.StatusOK, revokeRec.Code)

	// the revoked token must no longer verify.
	reuseReq := httptest.NewRequest(http.MethodPost, "/accounts/me/refresh", nil)
	reuseReq.Header.Set("Authorization", "Bearer "+refreshToken)
	reuseRec := httptest.NewRecorder()
	router.ServeHTTP(reuseRec, reuseReq)
	require.Equal(t, http.StatusUnauthorized, reuseRec.Code)
}

func TestRefresh_MissingBearerIsUnauthorized(t *testing.T) {
	h, _, _ := newTestTokenHandlers(t)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/accounts/me/refresh", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
