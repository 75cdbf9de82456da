package migrate

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/netology-group/iam/internal/config"
	registrymigrate "github.com/netology-group/iam/internal/registry/migrate"

	// Imported for its init() registration of the schema migrator.
	_ "github.com/netology-group/iam/internal/store"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Sources:  cli.EnvVars("IAM_DB_URL"),
				Usage:    "Database connection URL",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DBURL = cmd.String("db-url")
			ctx = config.WithContext(ctx, &cfg)

			log.Info("running migrations...")
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("all migrations completed successfully")
			return nil
		},
	}
}
