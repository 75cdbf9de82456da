package authn

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
	"github.com/netology-group/iam/internal/model"
)

// IdentityStore resolves and provisions accounts behind third-party
// identities.
type IdentityStore interface {
	// UpsertIdentity returns the Identity for (provider, label, sub),
	// creating both the Identity and a fresh Account the first time the
	// triple is seen.
	UpsertIdentity(ctx context.Context, provider, label, sub string) (model.Identity, error)
}

// AccountStore reads/writes Account rows.
type AccountStore interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

// NamespaceStore resolves namespaces by label.
type NamespaceStore interface {
	GetNamespaceByLabel(ctx context.Context, label string) (*model.Namespace, error)
}

// RefreshStore reads/writes the per-account refresh-token secret history.
type RefreshStore interface {
	GetRefreshTokens(ctx context.Context, accountID uuid.UUID) (*model.RefreshTokenRecord, error)
	PutRefreshTokens(ctx context.Context, rec model.RefreshTokenRecord) error
}

// Store aggregates everything the three flows need; internal/store's
// Postgres store satisfies it directly.
type Store interface {
	IdentityStore
	AccountStore
	NamespaceStore
	RefreshStore
}

// Flows implements retrieve/refresh/revoke against a Store, an IAM ES256
// signing key, and the issuer/expiry policy from config.
type Flows struct {
	Store      Store
	SigningKey *ecdsa.PrivateKey
	Issuer     string

	DefaultExpiresIn time.Duration
	MaxExpiresIn     time.Duration
}

// TokenPair is the access/refresh token pair returned by Retrieve and the
// access token alone returned by Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Retrieve exchanges a provider-signed client_token for an IAM-minted
// access/refresh token pair, provisioning the account on first sight.
// providerKey is the provider's ES256 public key for authKey, resolved by
// the caller from config.Config.Providers so Flows itself stays free of
// key-loading concerns.
func (f *Flows) Retrieve(ctx context.Context, authKey AuthKey, providerKey *ecdsa.PublicKey, clientToken string, expiresIn time.Duration) (TokenPair, error) {
	if err := authKey.validate(); err != nil {
		return TokenPair{}, iamerr.BadRequest("%v", err)
	}
	claims, err := verifyClientToken(providerKey, clientToken)
	if err != nil {
		return TokenPair{}, iamerr.Unauthorized("invalid client_token: %v", err)
	}
	if claims.Subject == "" {
		return TokenPair{}, iamerr.BadRequest("client_token missing sub claim")
	}

	ns, err := f.Store.GetNamespaceByLabel(ctx, authKey.Provider)
	if err != nil {
		return TokenPair{}, iamerr.Internal(err, "authn: resolve namespace")
	}
	if ns == nil {
		return TokenPair{}, iamerr.BadRequest("unknown provider %q", authKey.Provider)
	}

	identity, err := f.Store.UpsertIdentity(ctx, authKey.Provider, authKey.Label, claims.Subject)
	if err != nil {
		return TokenPair{}, iamerr.Internal(err, "authn: upsert identity")
	}

	account, err := f.Store.GetAccount(ctx, identity.AccountID)
	if err != nil {
		return TokenPair{}, iamerr.Internal(err, "authn: load account")
	}
	if account == nil {
		return TokenPair{}, iamerr.Internal(nil, "authn: account %s missing after upsert", identity.AccountID)
	}
	if account.DisabledAt != nil {
		return TokenPair{}, iamerr.Forbidden("account is disabled")
	}

	ttl := f.clampExpiresIn(expiresIn)
	access, err := MintAccessToken(f.SigningKey, f.Issuer, ns.Label, account.ID.String(), ttl)
	if err != nil {
		return TokenPair{}, err
	}

	secret, err := freshSecret()
	if err != nil {
		return TokenPair{}, iamerr.Internal(err, "authn: generate refresh secret")
	}
	if err := f.Store.PutRefreshTokens(ctx, model.RefreshTokenRecord{
		AccountID: account.ID,
		Keys:      abac.StringArray{secret},
	}); err != nil {
		return TokenPair{}, iamerr.Internal(err, "authn: persist refresh secret")
	}
	refresh, err := MintRefreshToken([]byte(secret), f.Issuer, ns.Label, account.ID.String())
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh mints a new access token from a still-valid refresh token. path
// is either "me" (decoded unsafely from rawRefreshToken purely to pick the
// account row) or an explicit account ID string; either way the refresh
// token's signature is verified against that account's known secrets
// before anything is granted.
func (f *Flows) Refresh(ctx context.Context, path, rawRefreshToken string, expiresIn time.Duration) (string, error) {
	accountID, rec, err := f.resolveAndVerify(ctx, path, rawRefreshToken)
	if err != nil {
		return "", err
	}

	claims, err := VerifyRefreshToken(secretsOf(*rec), f.Issuer, rawRefreshToken)
	if err != nil {
		return "", err
	}
	account, err := f.Store.GetAccount(ctx, accountID)
	if err != nil {
		return "", iamerr.Internal(err, "authn: load account")
	}
	if account == nil || account.DisabledAt != nil {
		return "", iamerr.Forbidden("account is disabled")
	}

	ttl := f.clampExpiresIn(expiresIn)
	return MintAccessToken(f.SigningKey, f.Issuer, claims.Audience, accountID.String(), ttl)
}

// Revoke verifies the presented refresh token, then replaces the account's
// entire secret history with one freshly generated secret and mints a new
// refresh token from it. Every refresh token minted before this call stops
// verifying immediately.
func (f *Flows) Revoke(ctx context.Context, path, rawRefreshToken string) (string, error) {
	accountID, rec, err := f.resolveAndVerify(ctx, path, rawRefreshToken)
	if err != nil {
		return "", err
	}

	claims, err := VerifyRefreshToken(secretsOf(*rec), f.Issuer, rawRefreshToken)
	if err != nil {
		return "", err
	}

	secret, err := freshSecret()
	if err != nil {
		return "", iamerr.Internal(err, "authn: generate refresh secret")
	}
	if err := f.Store.PutRefreshTokens(ctx, model.RefreshTokenRecord{
		AccountID: accountID,
		Keys:      abac.StringArray{secret},
	}); err != nil {
		return "", iamerr.Internal(err, "authn: persist refresh secret")
	}
	return MintRefreshToken([]byte(secret), f.Issuer, claims.Audience, accountID.String())
}

func (f *Flows) resolveAndVerify(ctx context.Context, path, rawRefreshToken string) (uuid.UUID, *model.RefreshTokenRecord, error) {
	var accountID uuid.UUID
	if path == "me" {
		sub, ok := UnsafeSubject(rawRefreshToken)
		if !ok {
			return uuid.UUID{}, nil, iamerr.BadRequest("malformed refresh token")
		}
		id, err := uuid.Parse(sub)
		if err != nil {
			return uuid.UUID{}, nil, iamerr.BadRequest("malformed refresh token subject")
		}
		accountID = id
	} else {
		id, err := uuid.Parse(path)
		if err != nil {
			return uuid.UUID{}, nil, iamerr.BadRequest("malformed account id %q", path)
		}
		accountID = id
	}

	rec, err := f.Store.GetRefreshTokens(ctx, accountID)
	if err != nil {
		return uuid.UUID{}, nil, iamerr.Internal(err, "authn: load refresh secrets")
	}
	if rec == nil || len(rec.Keys) == 0 {
		return uuid.UUID{}, nil, iamerr.Unauthorized("no refresh token on file")
	}
	return accountID, rec, nil
}

func (f *Flows) clampExpiresIn(requested time.Duration) time.Duration {
	ttl := f.DefaultExpiresIn
	if requested > 0 {
		ttl = requested
	}
	if f.MaxExpiresIn > 0 && ttl > f.MaxExpiresIn {
		ttl = f.MaxExpiresIn
	}
	return ttl
}

func secretsOf(rec model.RefreshTokenRecord) [][]byte {
	out := make([][]byte, len(rec.Keys))
	for i, k := range rec.Keys {
		out[i] = []byte(k)
	}
	return out
}

func freshSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
