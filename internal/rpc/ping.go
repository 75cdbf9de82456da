package rpc

import (
	"context"
	"encoding/json"
)

// pingHandler answers liveness checks; it never touches the guard or the
// store, so it works even for an anonymous caller and even if the database
// is unreachable.
func pingHandler(_ context.Context, _ *Deps, _ Caller, _ json.RawMessage) (any, error) {
	return map[string]string{"status": "ok"}, nil
}
