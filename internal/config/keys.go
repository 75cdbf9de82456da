package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// LoadECPrivateKey reads a PEM-encoded EC private key from path and returns
// the parsed *ecdsa.PrivateKey. This is the IAM signing key for access
// tokens: its public half is also what verifies them, so the same file
// backs both authn.MintAccessToken and authn.VerifyAccessToken.
func LoadECPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading key file %q: %w", path, err)
	}
	key, err := jwk.ParseKey(raw, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("config: parsing key file %q: %w", path, err)
	}
	var priv ecdsa.PrivateKey
	if err := jwk.Export(key, &priv); err != nil {
		return nil, fmt.Errorf("config: key file %q is not an EC private key: %w", path, err)
	}
	return &priv, nil
}

// LoadECPublicKey reads a PEM-encoded EC public key from path, used to
// verify client_token grants presented by a third-party identity provider.
func LoadECPublicKey(path string) (*ecdsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading key file %q: %w", path, err)
	}
	key, err := jwk.ParseKey(raw, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("config: parsing key file %q: %w", path, err)
	}
	var pub ecdsa.PublicKey
	if err := jwk.Export(key, &pub); err != nil {
		return nil, fmt.Errorf("config: key file %q is not an EC public key: %w", path, err)
	}
	return &pub, nil
}

// LoadProviderKeys resolves every configured provider's public key file into
// a map of auth_key ("label.provider") to *ecdsa.PublicKey, failing fast at
// startup rather than on the first retrieve call.
func LoadProviderKeys(providers map[string]string) (map[string]*ecdsa.PublicKey, error) {
	out := make(map[string]*ecdsa.PublicKey, len(providers))
	for authKey, path := range providers {
		pub, err := LoadECPublicKey(path)
		if err != nil {
			return nil, fmt.Errorf("config: provider %q: %w", authKey, err)
		}
		out[authKey] = pub
	}
	return out, nil
}
