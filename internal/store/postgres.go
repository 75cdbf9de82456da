// Package store is the Postgres-backed implementation of every interface
// internal/abac and internal/authn define: the ABAC graph and policy
// tables, the account/identity/namespace registry, and the refresh-token
// secret history. It is registered with internal/registry/store as the
// single "postgres" plugin.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the concrete Postgres store. DB serves every GORM-mapped
// read/write; Pool serves the one place raw SQL beats an ORM: the bounded
// recursive expansion query in expand.go.
type Store struct {
	DB   *gorm.DB
	Pool *pgxpool.Pool

	// ExpansionMaxDepth/ExpansionMaxRows bound the recursive closure query
	// in expand.go; zero means "use the same defaults as GraphExpander".
	ExpansionMaxDepth int
	ExpansionMaxRows  int
}

// Open connects to dbURL, configuring the pool size from maxOpen/maxIdle,
// and wires a pgxpool alongside the *gorm.DB for expand.go's raw query.
func Open(ctx context.Context, dbURL string, maxOpen, maxIdle int) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: gorm.Open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("store: pgxpool.New: %w", err)
	}

	return &Store{DB: db, Pool: pool}, nil
}

// Close releases both the GORM and pgx connection pools.
func (s *Store) Close() error {
	s.Pool.Close()
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
