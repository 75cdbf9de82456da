package security

import (
	"crypto/ecdsa"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/authn"
	registrycache "github.com/netology-group/iam/internal/registry/cache"
)

const (
	// ContextKeyAccountID is the gin context key for the authenticated
	// account's ID, as verified from the access token's `sub` claim.
	ContextKeyAccountID = "accountID"
	// ContextKeyNamespace is the gin context key for the namespace label
	// the caller authenticated against (the access token's `aud` claim).
	ContextKeyNamespace = "namespace"
)

// AccessTokenVerifier verifies IAM-minted ES256 access tokens. It replaces
// the OIDC-backed TokenResolver the teacher service used: every caller of
// this service holds a token this service itself minted, so there is only
// ever one verification key (or a short rotation list), never a remote
// discovery document.
type AccessTokenVerifier struct {
	publicKeys []*ecdsa.PublicKey
	issuer     string
}

// NewAccessTokenVerifier builds a verifier for tokens issued as issuer,
// accepting any key in publicKeys (plural to allow a grace period across a
// signing-key rotation).
func NewAccessTokenVerifier(issuer string, publicKeys ...*ecdsa.PublicKey) *AccessTokenVerifier {
	return &AccessTokenVerifier{publicKeys: publicKeys, issuer: issuer}
}

// Verify checks raw against every configured key, returning the first
// successful verification's claims.
func (v *AccessTokenVerifier) Verify(raw string) (*authn.Claims, error) {
	var lastErr error
	for _, pub := range v.publicKeys {
		claims, err := authn.VerifyAccessToken(pub, v.issuer, raw)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// AccountID returns the authenticated caller's account ID from the gin
// context, or the zero UUID if the request was never authenticated.
func AccountID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ContextKeyAccountID)
	if !ok {
		return uuid.UUID{}
	}
	id, _ := v.(uuid.UUID)
	return id
}

// Namespace returns the namespace label the caller authenticated against.
func Namespace(c *gin.Context) string {
	return c.GetString(ContextKeyNamespace)
}

// AuthMiddleware extracts and verifies the bearer access token, rejecting
// the request with 401 if it is missing, fails verification, or names an
// account the revocation cache (see internal/registry/cache) has marked
// revoked. revocationCache may be nil, in which
// case only signature/claims verification applies.
func AuthMiddleware(verifier *AccessTokenVerifier, revocationCache registrycache.RevocationCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			log.Info("auth rejected: missing Authorization header", "method", c.Request.Method, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			log.Info("auth rejected: expected Bearer token", "method", c.Request.Method, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header; expected Bearer token"})
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			log.Info("auth rejected", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
			return
		}
		accountID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token subject"})
			return
		}

		if revocationCache != nil && revocationCache.Available() {
			revoked, err := revocationCache.IsRevoked(c.Request.Context(), accountID)
			if err != nil {
				log.Warn("revocation cache lookup failed; allowing request", "err", err)
			} else if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account access has been revoked"})
				return
			}
		}

		c.Set(ContextKeyAccountID, accountID)
		c.Set(ContextKeyNamespace, claims.Audience)
		c.Next()
	}
}

// OptionalAuthMiddleware verifies the bearer access token when present but,
// unlike AuthMiddleware, lets the request through anonymously when no
// Authorization header is sent at all. A header that IS present and fails
// verification still aborts the request with 401: "unverifiable" and
// "absent" are different outcomes (spec: JSON-RPC dispatch treats a missing
// header as an anonymous subject, but a malformed or invalid one is a
// transport-level rejection before dispatch).
func OptionalAuthMiddleware(verifier *AccessTokenVerifier, revocationCache registrycache.RevocationCache) gin.HandlerFunc {
	auth := AuthMiddleware(verifier, revocationCache)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		auth(c)
	}
}
