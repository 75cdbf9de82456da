package serve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/netology-group/iam/internal/config"
	registrycache "github.com/netology-group/iam/internal/registry/cache"

	// Imported for their init() plugin registrations.
	_ "github.com/netology-group/iam/internal/plugin/cache/noop"
	_ "github.com/netology-group/iam/internal/plugin/cache/redis"
	_ "github.com/netology-group/iam/internal/store"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the IAM HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Sources: cli.EnvVars("IAM_MODE"),
				Value:   config.ModeProd,
				Usage:   "Security mode (" + config.ModeProd + "|" + config.ModeTesting + ")",
			},

			&cli.StringFlag{
				Name:     "db-url",
				Sources:  cli.EnvVars("IAM_DB_URL"),
				Usage:    "Database connection URL",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "db-migrate-at-start",
				Sources: cli.EnvVars("IAM_DB_MIGRATE_AT_START"),
				Value:   true,
				Usage:   "Run schema migrations before accepting traffic",
			},
			&cli.IntFlag{
				Name:    "db-max-open-conns",
				Sources: cli.EnvVars("IAM_DB_MAX_OPEN_CONNS"),
				Value:   25,
			},
			&cli.IntFlag{
				Name:    "db-max-idle-conns",
				Sources: cli.EnvVars("IAM_DB_MAX_IDLE_CONNS"),
				Value:   5,
			},

			&cli.StringFlag{
				Name:    "cache-kind",
				Sources: cli.EnvVars("IAM_CACHE_KIND"),
				Value:   "none",
				Usage:   "Revocation cache backend (" + strings.Join(registrycache.Names(), "|") + ")",
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Sources: cli.EnvVars("IAM_REDIS_URL"),
				Usage:   "Redis connection URL, required when --cache-kind=redis",
			},
			&cli.DurationFlag{
				Name:    "revocation-cache-ttl",
				Sources: cli.EnvVars("IAM_REVOCATION_CACHE_TTL"),
				Value:   90 * 24 * time.Hour,
			},

			&cli.IntFlag{
				Name:    "port",
				Sources: cli.EnvVars("IAM_PORT"),
				Value:   8080,
			},
			&cli.DurationFlag{
				Name:    "read-header-timeout",
				Sources: cli.EnvVars("IAM_READ_HEADER_TIMEOUT"),
				Value:   5 * time.Second,
			},
			&cli.BoolFlag{
				Name:    "cors-enabled",
				Sources: cli.EnvVars("IAM_CORS_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Sources: cli.EnvVars("IAM_CORS_ORIGINS"),
				Value:   "*",
			},
			&cli.StringFlag{
				Name:    "metrics-labels",
				Sources: cli.EnvVars("IAM_METRICS_LABELS"),
				Value:   "service=iam",
				Usage:   "Comma-separated key=value constant labels applied to all metrics",
			},

			&cli.StringFlag{
				Name:     "iam-namespace-id",
				Sources:  cli.EnvVars("IAM_NAMESPACE_ID"),
				Usage:    "Namespace ID that owns the ABAC collections themselves",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "token-issuer",
				Sources: cli.EnvVars("IAM_TOKEN_ISSUER"),
				Value:   config.DefaultIssuer,
			},
			&cli.StringFlag{
				Name:     "access-token-keyfile",
				Sources:  cli.EnvVars("IAM_ACCESS_TOKEN_KEYFILE"),
				Usage:    "PEM-encoded ES256 private key used to sign and verify access tokens",
				Required: true,
			},
			&cli.DurationFlag{
				Name:    "access-token-expires-in",
				Sources: cli.EnvVars("IAM_ACCESS_TOKEN_EXPIRES_IN"),
				Value:   time.Hour,
			},
			&cli.DurationFlag{
				Name:    "refresh-token-expires-in",
				Sources: cli.EnvVars("IAM_REFRESH_TOKEN_EXPIRES_IN"),
				Value:   30 * 24 * time.Hour,
			},
			&cli.DurationFlag{
				Name:    "refresh-token-expires-in-max",
				Sources: cli.EnvVars("IAM_REFRESH_TOKEN_EXPIRES_IN_MAX"),
				Value:   90 * 24 * time.Hour,
			},
			&cli.StringFlag{
				Name:    "providers",
				Sources: cli.EnvVars("IAM_PROVIDERS"),
				Usage:   "Comma-separated <label>.<provider>=/path/to/key.pem list of provider verification keys",
			},

			&cli.IntFlag{
				Name:    "pagination-limit",
				Sources: cli.EnvVars("IAM_PAGINATION_LIMIT"),
				Value:   25,
			},
			&cli.IntFlag{
				Name:    "pagination-limit-max",
				Sources: cli.EnvVars("IAM_PAGINATION_LIMIT_MAX"),
				Value:   100,
			},
			&cli.IntFlag{
				Name:    "expansion-max-depth",
				Sources: cli.EnvVars("IAM_EXPANSION_MAX_DEPTH"),
				Value:   16,
			},
			&cli.IntFlag{
				Name:    "expansion-max-rows",
				Sources: cli.EnvVars("IAM_EXPANSION_MAX_ROWS"),
				Value:   10000,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.Mode = cmd.String("mode")

			cfg.DBURL = cmd.String("db-url")
			cfg.DatastoreMigrateAtStart = cmd.Bool("db-migrate-at-start")
			cfg.DBMaxOpenConns = int(cmd.Int("db-max-open-conns"))
			cfg.DBMaxIdleConns = int(cmd.Int("db-max-idle-conns"))

			cfg.CacheType = cmd.String("cache-kind")
			cfg.RedisURL = cmd.String("redis-url")
			cfg.RevocationCacheTTL = cmd.Duration("revocation-cache-ttl")

			cfg.Listener = config.ListenerConfig{
				Port:              int(cmd.Int("port")),
				ReadHeaderTimeout: cmd.Duration("read-header-timeout"),
			}
			cfg.CORSEnabled = cmd.Bool("cors-enabled")
			cfg.CORSOrigins = cmd.String("cors-origins")
			cfg.MetricsLabels = cmd.String("metrics-labels")

			cfg.IAMNamespaceID = cmd.String("iam-namespace-id")
			cfg.TokenIssuer = cmd.String("token-issuer")
			cfg.AccessTokenKeyFile = cmd.String("access-token-keyfile")
			cfg.AccessTokenExpiresIn = cmd.Duration("access-token-expires-in")
			cfg.RefreshTokenExpiresIn = cmd.Duration("refresh-token-expires-in")
			cfg.RefreshTokenExpiresInMax = cmd.Duration("refresh-token-expires-in-max")
			cfg.Providers = config.ParseProvidersCSV(cmd.String("providers"))

			cfg.PaginationLimit = int(cmd.Int("pagination-limit"))
			cfg.PaginationLimitMax = int(cmd.Int("pagination-limit-max"))
			cfg.ExpansionMaxDepth = int(cmd.Int("expansion-max-depth"))
			cfg.ExpansionMaxRows = int(cmd.Int("expansion-max-rows"))

			ctx = config.WithContext(ctx, &cfg)

			srv, err := StartServer(ctx, &cfg)
			if err != nil {
				return fmt.Errorf("starting server: %w", err)
			}
			<-ctx.Done()
			log.Info("shutting down")
			return srv.Shutdown(context.Background())
		},
	}
}
