package rpc

import (
	"net/http"

	"github.com/netology-group/iam/internal/iamerr"
)

// errInvalidParams is the JSON-RPC code used for params that fail to
// decode and, through rpcCode, for every iamerr.KindBadRequest a handler
// returns.
const errInvalidParams = -32602

// errMethodNotFound is returned for a method string not in the dispatch table.
const errMethodNotFound = -32601

// rpcCode maps an iamerr.Kind to the JSON-RPC error code spec.md §6.3 names.
func rpcCode(kind iamerr.Kind) int {
	switch kind {
	case iamerr.KindBadRequest:
		return errInvalidParams
	case iamerr.KindUnauthorized:
		return http.StatusUnauthorized
	case iamerr.KindForbidden:
		return http.StatusForbidden
	case iamerr.KindNotFound:
		return http.StatusNotFound
	case iamerr.KindConflict:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// httpStatus maps an iamerr.Kind to the outer HTTP status spec.md §6.2
// names; the JSON-RPC body still carries its own error code regardless.
func httpStatus(kind iamerr.Kind) int {
	switch kind {
	case iamerr.KindBadRequest:
		return http.StatusBadRequest
	case iamerr.KindUnauthorized:
		return http.StatusUnauthorized
	case iamerr.KindForbidden:
		return http.StatusForbidden
	case iamerr.KindNotFound:
		return http.StatusNotFound
	case iamerr.KindConflict:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
