// Package cache defines the revocation-cache plugin registry: an optional
// deny list of account IDs that security.AuthMiddleware checks, rejecting
// an access token whose account is listed even before the token expires.
// No code path in this service calls RevocationCache.Revoke; disabling an
// account or revoking its refresh token does not add it to the list.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type revocationCacheKey struct{}

// WithContext returns a new context carrying the given RevocationCache.
func WithContext(ctx context.Context, c RevocationCache) context.Context {
	return context.WithValue(ctx, revocationCacheKey{}, c)
}

// FromContext retrieves the RevocationCache from the context, or nil if
// none was set (callers should treat a nil cache the same as an
// unavailable one).
func FromContext(ctx context.Context) RevocationCache {
	c, _ := ctx.Value(revocationCacheKey{}).(RevocationCache)
	return c
}

// RevocationCache remembers accounts revoked before their outstanding
// access tokens would otherwise expire on their own.
type RevocationCache interface {
	Available() bool
	IsRevoked(ctx context.Context, accountID uuid.UUID) (bool, error)
	Revoke(ctx context.Context, accountID uuid.UUID, ttl time.Duration) error
}

// Loader creates a RevocationCache from config.
type Loader func(ctx context.Context) (RevocationCache, error)

// Plugin represents a cache plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered cache plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named cache plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown cache %q; valid: %v", name, Names())
}
