package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/netology-group/iam/internal/config"
	registrycache "github.com/netology-group/iam/internal/registry/cache"
)

const defaultTTL = 90 * 24 * time.Hour

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "redis",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.RevocationCache, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis cache: IAM_REDIS_URL is required")
	}
	ttl := cfg.RevocationCacheTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return LoadFromURLWithTTL(ctx, cfg.RedisURL, ttl)
}

// LoadFromURL creates a RevocationCache from a Redis-compatible URL, using
// the default TTL.
func LoadFromURL(ctx context.Context, redisURL string) (registrycache.RevocationCache, error) {
	return LoadFromURLWithTTL(ctx, redisURL, defaultTTL)
}

// LoadFromURLWithTTL creates a cache with an explicit default revocation TTL.
func LoadFromURLWithTTL(ctx context.Context, redisURL string, ttl time.Duration) (registrycache.RevocationCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	return LoadFromOptionsWithTTL(ctx, opts, ttl)
}

// LoadFromOptionsWithTTL creates a RevocationCache from go-redis Options,
// allowing callers to customize transport details (e.g. Protocol, TLS).
func LoadFromOptionsWithTTL(ctx context.Context, opts *goredis.Options, ttl time.Duration) (registrycache.RevocationCache, error) {
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis cache: ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisRevocationCache{client: client, ttl: ttl}, nil
}

type redisRevocationCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func revokedKey(accountID uuid.UUID) string {
	return "iam-revoked:" + accountID.String()
}

func (c *redisRevocationCache) Available() bool { return true }

func (c *redisRevocationCache) IsRevoked(ctx context.Context, accountID uuid.UUID) (bool, error) {
	n, err := c.client.Exists(ctx, revokedKey(accountID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisRevocationCache) Revoke(ctx context.Context, accountID uuid.UUID, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.client.Set(ctx, revokedKey(accountID), "1", ttl).Err()
}

var _ registrycache.RevocationCache = (*redisRevocationCache)(nil)
