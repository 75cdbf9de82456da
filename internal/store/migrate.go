package store

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/netology-group/iam/internal/config"
	registrymigrate "github.com/netology-group/iam/internal/registry/migrate"
)

func init() {
	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &schemaMigrator{}})
}

type schemaMigrator struct{}

func (m *schemaMigrator) Name() string { return "postgres-schema" }

func (m *schemaMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return fmt.Errorf("migration: no config in context")
	}
	if !cfg.DatastoreMigrateAtStart {
		return nil
	}

	log.Info("running migration", "name", m.Name())
	s, err := Open(ctx, cfg.DBURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return fmt.Errorf("migration: connect: %w", err)
	}
	defer s.Close()

	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if _, err := sqlDB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migration: execute schema: %w", err)
	}
	log.Info("postgres schema migration complete")
	return nil
}
