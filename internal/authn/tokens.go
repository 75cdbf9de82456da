package authn

import (
	"crypto/ecdsa"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/netology-group/iam/internal/iamerr"
)

// Claims is the decoded, verified form of either token kind: who (Subject),
// for what audience, and when it was issued/expires.
type Claims struct {
	Issuer    string
	Audience  string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// MintAccessToken signs an ES256 access token for subject (an account ID)
// scoped to audience (the namespace label the caller authenticated
// against), valid for ttl.
func MintAccessToken(priv *ecdsa.PrivateKey, issuer, audience, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{audience}).
		Subject(subject).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Build()
	if err != nil {
		return "", iamerr.Internal(err, "authn: build access token")
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), priv))
	if err != nil {
		return "", iamerr.Internal(err, "authn: sign access token")
	}
	return string(signed), nil
}

// VerifyAccessToken verifies an ES256 access token's signature and issuer,
// returning its claims. This is the only path that ever grants access: the
// "me" path shortcut used by refresh/revoke never substitutes for this.
func VerifyAccessToken(pub *ecdsa.PublicKey, issuer, raw string) (*Claims, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.ES256(), pub),
		jwt.WithValidate(true),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, iamerr.Unauthorized("invalid access token: %v", err)
	}
	return claimsOf(tok), nil
}

// verifyClientToken verifies a provider-signed client_token's ES256
// signature without constraining the issuer, since the issuer is the
// third-party provider's own, not ours.
func verifyClientToken(pub *ecdsa.PublicKey, raw string) (*Claims, error) {
	tok, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.ES256(), pub), jwt.WithValidate(true))
	if err != nil {
		return nil, err
	}
	return claimsOf(tok), nil
}

// MintRefreshToken signs an HS256 refresh token with the account's current
// secret. Refresh tokens carry no exp claim: their lifetime is governed
// entirely by rotation (Revoke) and the caller's own storage policy, not
// by the token itself — see RefreshTokenRecord.
func MintRefreshToken(secret []byte, issuer, audience, subject string) (string, error) {
	now := time.Now()
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{audience}).
		Subject(subject).
		IssuedAt(now).
		Build()
	if err != nil {
		return "", iamerr.Internal(err, "authn: build refresh token")
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), secret))
	if err != nil {
		return "", iamerr.Internal(err, "authn: sign refresh token")
	}
	return string(signed), nil
}

// VerifyRefreshToken verifies an HS256 refresh token against each of the
// account's stored secrets (RefreshTokenRecord.Keys) in turn, succeeding on
// the first that matches.
func VerifyRefreshToken(secrets [][]byte, issuer, raw string) (*Claims, error) {
	var lastErr error
	for _, secret := range secrets {
		tok, err := jwt.Parse([]byte(raw),
			jwt.WithKey(jwa.HS256(), secret),
			jwt.WithValidate(true),
			jwt.WithIssuer(issuer),
		)
		if err == nil {
			return claimsOf(tok), nil
		}
		lastErr = err
	}
	return nil, iamerr.Unauthorized("invalid refresh token: %v", lastErr)
}

// UnsafeSubject decodes raw without verifying its signature, returning only
// the `sub` claim. It exists solely so the "me" path shortcut on
// /accounts/me/refresh and /accounts/me/revoke can pick which account row
// to load; it MUST NOT be used to make an authorization decision; Refresh
// and Revoke both verify the token's signature against that account's
// stored secrets before minting or rotating anything.
func UnsafeSubject(raw string) (string, bool) {
	tok, err := jwt.Parse([]byte(raw), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return "", false
	}
	sub := stringClaim(tok, jwt.SubjectKey)
	return sub, sub != ""
}

func claimsOf(tok jwt.Token) *Claims {
	c := &Claims{}
	c.Issuer = stringClaim(tok, jwt.IssuerKey)
	c.Subject = stringClaim(tok, jwt.SubjectKey)
	if v, ok := tok.Get(jwt.AudienceKey); ok {
		if aud, ok := v.([]string); ok && len(aud) > 0 {
			c.Audience = aud[0]
		}
	}
	if v, ok := tok.Get(jwt.IssuedAtKey); ok {
		if t, ok := v.(time.Time); ok {
			c.IssuedAt = t
		}
	}
	if v, ok := tok.Get(jwt.ExpirationKey); ok {
		if t, ok := v.(time.Time); ok {
			c.ExpiresAt = t
		}
	}
	return c
}

func stringClaim(tok jwt.Token, key string) string {
	v, ok := tok.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
