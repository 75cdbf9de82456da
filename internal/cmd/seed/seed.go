// Package seed wraps internal/bootstrap in a one-shot CLI command: an
// operator runs it once against a fresh database before the server's
// guard has any policies to check.
package seed

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/netology-group/iam/internal/bootstrap"
	"github.com/netology-group/iam/internal/config"
	registrystore "github.com/netology-group/iam/internal/registry/store"

	// Imported for its init() registration of the "postgres" store plugin.
	_ "github.com/netology-group/iam/internal/store"
)

// Command returns the seed sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Seed a fresh IAM namespace with its bootstrap admin policies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Sources:  cli.EnvVars("IAM_DB_URL"),
				Usage:    "Database connection URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "iam-namespace-id",
				Sources:  cli.EnvVars("IAM_NAMESPACE_ID"),
				Usage:    "Namespace ID that owns the ABAC collections themselves",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "iam-namespace-label",
				Sources: cli.EnvVars("IAM_NAMESPACE_LABEL"),
				Value:   "iam",
				Usage:   "Label stamped on the IAM namespace row",
			},
			&cli.StringFlag{
				Name:    "admin-account-id",
				Sources: cli.EnvVars("IAM_ADMIN_ACCOUNT_ID"),
				Usage:   "Account ID granted total self-referential rights; a fresh UUID is generated and printed if omitted",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			namespaceID, err := uuid.Parse(cmd.String("iam-namespace-id"))
			if err != nil {
				return fmt.Errorf("invalid --iam-namespace-id: %w", err)
			}
			adminAccountID := uuid.New()
			if raw := cmd.String("admin-account-id"); raw != "" {
				adminAccountID, err = uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid --admin-account-id: %w", err)
				}
			}

			cfg := config.DefaultConfig()
			cfg.DBURL = cmd.String("db-url")
			ctx = config.WithContext(ctx, &cfg)

			storeLoader, err := registrystore.Select("postgres")
			if err != nil {
				return err
			}
			store, err := storeLoader(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			defer store.Close()

			s := &bootstrap.Seed{
				Store:          store,
				NamespaceID:    namespaceID,
				NamespaceLabel: cmd.String("iam-namespace-label"),
				AdminAccountID: adminAccountID,
			}
			if err := s.Run(ctx); err != nil {
				return err
			}
			log.Info("seeded IAM namespace", "namespace_id", namespaceID, "admin_account_id", adminAccountID)
			return nil
		},
	}
}
