package config

import (
	"context"
	"strings"
	"time"
)

// ListenerConfig holds the network settings for the HTTP listener.
type ListenerConfig struct {
	Port              int
	ReadHeaderTimeout time.Duration
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

const (
	ModeProd    = "prod"
	ModeTesting = "testing"
)

// DefaultIssuer is the `iss` claim stamped into every access and refresh
// token minted by this service.
const DefaultIssuer = "iam.netology-group.services"

// Config holds all configuration for the IAM service.
type Config struct {
	// Mode controls security behavior: "prod" (default) or "testing".
	Mode string

	// Database
	DBURL                   string
	DatastoreMigrateAtStart bool
	DBMaxOpenConns          int
	DBMaxIdleConns          int

	// Cache backend for the revoked-account deny list ("redis" or "none").
	CacheType string
	RedisURL  string
	// RevocationCacheTTL is the default time a revoked account ID is
	// remembered by the redis cache.
	RevocationCacheTTL time.Duration

	// Server
	Listener    ListenerConfig
	CORSEnabled bool
	CORSOrigins string

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR} expansion.
	MetricsLabels string

	// IAMNamespaceID is the namespace that owns the ABAC collections
	// themselves (accounts, identities, namespaces, abac_*). Every guard
	// check synthesizes its authorization query inside this namespace.
	IAMNamespaceID string

	// TokenIssuer is stamped as the `iss` claim on minted tokens.
	TokenIssuer string

	// AccessTokenKeyFile is a PEM-encoded ES256 private key used to sign
	// (and, loaded as its public half, verify) access tokens.
	AccessTokenKeyFile string

	// AccessTokenExpiresIn is the access-token lifetime used when a
	// retrieve/refresh caller does not pass an explicit expires_in.
	AccessTokenExpiresIn time.Duration

	// RefreshTokenExpiresIn is set from --refresh-token-expires-in; no token
	// flow reads it. The refresh token itself carries no exp claim (see
	// internal/authn.MintRefreshToken), and the default expires_in of an
	// access token comes from AccessTokenExpiresIn.
	RefreshTokenExpiresIn time.Duration
	// RefreshTokenExpiresInMax caps the expires_in a caller may request.
	RefreshTokenExpiresInMax time.Duration

	// Providers maps an "auth_key" identity — "<label>.<provider>" — to the
	// path of a PEM-encoded ES256 public key used to verify client_token
	// grants presented to authn.retrieve for that provider.
	Providers map[string]string

	// PaginationLimit is the default page size for list operations.
	PaginationLimit int
	// PaginationLimitMax is the largest page size a caller may request.
	PaginationLimitMax int

	// ExpansionMaxDepth bounds how many outbound edge hops the ABAC
	// expansion engine will traverse before giving up.
	ExpansionMaxDepth int
	// ExpansionMaxRows bounds the total number of attributes a single
	// expansion call may visit.
	ExpansionMaxRows int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                     ModeProd,
		DatastoreMigrateAtStart:  true,
		CacheType:                "none",
		RevocationCacheTTL:       90 * 24 * time.Hour,
		Listener:                 ListenerConfig{Port: 8080, ReadHeaderTimeout: 5 * time.Second},
		MetricsLabels:            "service=iam",
		TokenIssuer:              DefaultIssuer,
		AccessTokenExpiresIn:     time.Hour,
		RefreshTokenExpiresIn:    30 * 24 * time.Hour,
		RefreshTokenExpiresInMax: 90 * 24 * time.Hour,
		PaginationLimit:          25,
		PaginationLimitMax:       100,
		ExpansionMaxDepth:        16,
		ExpansionMaxRows:         10000,
		DBMaxOpenConns:           25,
		DBMaxIdleConns:           5,
		Providers:                map[string]string{},
	}
}

// ParseProvidersCSV parses a comma-separated "label.provider=/path/to/key.pem"
// list, as accepted by the --providers flag / IAM_PROVIDERS env var, into a
// map consumable by Config.Providers.
func ParseProvidersCSV(raw string) map[string]string {
	result := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.IndexByte(pair, '=')
		if idx < 0 {
			continue
		}
		result[strings.TrimSpace(pair[:idx])] = strings.TrimSpace(pair[idx+1:])
	}
	return result
}
