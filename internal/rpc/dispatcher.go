package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/abac"
	"github.com/netology-group/iam/internal/iamerr"
	"github.com/netology-group/iam/internal/security"
)

// Handler is one "<entity>.<verb>" method body. params is the raw
// "params" member of the envelope, still to be unmarshaled by the handler
// into whatever shape that method expects.
type Handler func(ctx context.Context, deps *Deps, caller Caller, params json.RawMessage) (any, error)

// Dispatcher routes JSON-RPC envelopes to registered method handlers.
type Dispatcher struct {
	deps     *Deps
	handlers map[string]Handler
}

// NewDispatcher builds a Dispatcher with every entity method from spec.md
// §4.8 registered.
func NewDispatcher(deps *Deps) *Dispatcher {
	d := &Dispatcher{deps: deps, handlers: map[string]Handler{}}
	d.handlers["ping"] = pingHandler
	d.handlers["authorize"] = authorizeHandler
	registerAttrMethods(d.handlers, "abac_subject_attr", abac.RelationSubject, abac.CollectionAbacSubject)
	registerAttrMethods(d.handlers, "abac_object_attr", abac.RelationObject, abac.CollectionAbacObject)
	registerAttrMethods(d.handlers, "abac_action_attr", abac.RelationAction, abac.CollectionAbacAction)
	registerPolicyMethods(d.handlers)
	registerAccountMethods(d.handlers)
	registerIdentityMethods(d.handlers)
	registerNamespaceMethods(d.handlers)
	return d
}

// Handle is the gin handler for POST /. Authorization is optional at this
// layer: security.OptionalAuthMiddleware has already run and set the
// account-id context key only when a valid token was presented, so a
// missing header reaches here as an anonymous Caller rather than a 401.
func (d *Dispatcher) Handle(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, nil, errInvalidParams, "Invalid params: "+err.Error(), http.StatusBadRequest)
		return
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(c, nil, errInvalidParams, "Invalid params: "+err.Error(), http.StatusBadRequest)
		return
	}

	handler, ok := d.handlers[req.Method]
	if !ok {
		writeError(c, req.ID, errMethodNotFound, "Method not found: "+req.Method, http.StatusNotFound)
		return
	}

	accountID := security.AccountID(c)
	caller := Caller{AccountID: accountID, Authenticated: accountID != uuid.Nil}

	result, err := handler(c.Request.Context(), d.deps, caller, req.Params)
	if err != nil {
		kind := iamerr.As(err)
		writeError(c, req.ID, rpcCode(kind), iamerr.Message(err), httpStatus(kind))
		return
	}
	c.JSON(http.StatusOK, Response{JSONRPC: "2.0", Result: result, ID: req.ID})
}

func writeError(c *gin.Context, id json.RawMessage, code int, message string, status int) {
	c.JSON(status, Response{JSONRPC: "2.0", Error: &ErrorObject{Code: code, Message: message}, ID: id})
}
