package serve

import (
	"crypto/ecdsa"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/netology-group/iam/internal/authn"
	"github.com/netology-group/iam/internal/iamerr"
)

// tokenHandlers implements the three token-lifecycle HTTP endpoints
// (spec.md §6.1) directly against authn.Flows. These never go through
// security.AuthMiddleware/OptionalAuthMiddleware: retrieve authenticates a
// provider-signed client_token, and refresh/revoke authenticate a
// refresh token, neither of which is the IAM access token that middleware
// verifies.
type tokenHandlers struct {
	flows        *authn.Flows
	providerKeys map[string]*ecdsa.PublicKey
}

func newTokenHandlers(flows *authn.Flows, providerKeys map[string]*ecdsa.PublicKey) *tokenHandlers {
	return &tokenHandlers{flows: flows, providerKeys: providerKeys}
}

type retrieveRequest struct {
	GrantType   string `json:"grant_type" form:"grant_type"`
	ClientToken string `json:"client_token" form:"client_token"`
	ExpiresIn   int64  `json:"expires_in" form:"expires_in"`
}

func (h *tokenHandlers) retrieve(c *gin.Context) {
	authKey, err := authn.ParseAuthKey(c.Param("authKey"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	var req retrieveRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.GrantType != "client_token" || req.ClientToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	providerKey, ok := h.providerKeys[authKey.String()]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_client"})
		return
	}

	pair, err := h.flows.Retrieve(c.Request.Context(), authKey, providerKey, req.ClientToken, time.Duration(req.ExpiresIn)*time.Second)
	if err != nil {
		writeTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    int64(h.flows.DefaultExpiresIn.Seconds()),
		"token_type":    "Bearer",
	})
}

type refreshRequest struct {
	ExpiresIn int64 `json:"expires_in" form:"expires_in"`
}

func (h *tokenHandlers) refresh(c *gin.Context) {
	raw, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
		return
	}
	var req refreshRequest
	_ = c.ShouldBind(&req)

	access, err := h.flows.Refresh(c.Request.Context(), c.Param("id"), raw, time.Duration(req.ExpiresIn)*time.Second)
	if err != nil {
		writeTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": access,
		"expires_in":   int64(h.flows.DefaultExpiresIn.Seconds()),
		"token_type":   "Bearer",
	})
}

func (h *tokenHandlers) revoke(c *gin.Context) {
	raw, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
		return
	}
	fresh, err := h.flows.Revoke(c.Request.Context(), c.Param("id"), raw)
	if err != nil {
		writeTokenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refresh_token": fresh})
}

func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" || token == auth {
		return "", false
	}
	return token, true
}

func writeTokenError(c *gin.Context, err error) {
	kind := iamerr.As(err)
	status := http.StatusInternalServerError
	code := "invalid_request"
	switch kind {
	case iamerr.KindBadRequest:
		status, code = http.StatusBadRequest, "invalid_request"
	case iamerr.KindUnauthorized:
		status, code = http.StatusUnauthorized, "invalid_client"
	case iamerr.KindForbidden:
		status, code = http.StatusForbidden, "invalid_client"
	case iamerr.KindNotFound:
		status, code = http.StatusNotFound, "invalid_request"
	}
	c.JSON(status, gin.H{"error": code})
}
