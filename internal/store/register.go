package store

import (
	"context"
	"fmt"

	"github.com/netology-group/iam/internal/config"
	registrystore "github.com/netology-group/iam/internal/registry/store"
)

var _ registrystore.IAMStore = (*Store)(nil)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name:   "postgres",
		Loader: load,
	})
}

func load(ctx context.Context) (registrystore.IAMStore, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("store: no config in context")
	}
	s, err := Open(ctx, cfg.DBURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return nil, err
	}
	s.ExpansionMaxDepth = cfg.ExpansionMaxDepth
	s.ExpansionMaxRows = cfg.ExpansionMaxRows
	return s, nil
}
