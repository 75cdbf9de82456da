// Package authn implements the token lifecycle: minting and verifying
// ES256 access tokens, minting/verifying/rotating HS256 refresh tokens,
// and the three public flows (retrieve, refresh, revoke) spec.md's
// authentication endpoints delegate to.
package authn

import (
	"fmt"
	"strings"

	"github.com/netology-group/iam/internal/iamerr"
)

// AuthKey identifies a third-party identity provider configuration as
// "<label>.<provider>" — e.g. "ios.auth0" — matching the providers map
// keys in config.Config.Providers. Label comes first so a provider can
// expose several distinct audiences ("ios.auth0", "web.auth0") each with
// their own verification key.
type AuthKey struct {
	Label    string
	Provider string
}

func (k AuthKey) String() string { return k.Label + "." + k.Provider }

// ParseAuthKey parses "<label>.<provider>" into an AuthKey, splitting on
// the first '.' so a label may not itself contain a dot but a provider
// name may (e.g. "ios.accounts.google.com" parses as label "ios" and
// provider "accounts.google.com").
func ParseAuthKey(raw string) (AuthKey, error) {
	idx := strings.IndexByte(raw, '.')
	if idx < 0 {
		return AuthKey{}, iamerr.BadRequest("invalid auth key %q: expected <label>.<provider>", raw)
	}
	label, provider := raw[:idx], raw[idx+1:]
	if label == "" || provider == "" {
		return AuthKey{}, iamerr.BadRequest("invalid auth key %q: expected <label>.<provider>", raw)
	}
	return AuthKey{Label: label, Provider: provider}, nil
}

func (k AuthKey) validate() error {
	if k.Label == "" || k.Provider == "" {
		return fmt.Errorf("authn: empty auth key component")
	}
	return nil
}
