package noop

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/netology-group/iam/internal/registry/cache"
)

func init() {
	cache.Register(cache.Plugin{
		Name: "none",
		Loader: func(ctx context.Context) (cache.RevocationCache, error) {
			return &noopRevocationCache{}, nil
		},
	})
}

type noopRevocationCache struct{}

func (n *noopRevocationCache) Available() bool { return false }
func (n *noopRevocationCache) IsRevoked(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}
func (n *noopRevocationCache) Revoke(_ context.Context, _ uuid.UUID, _ time.Duration) error {
	return nil
}

var _ cache.RevocationCache = (*noopRevocationCache)(nil)
