// Package backend picks the Store implementation named by the configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meikuraledutech/topology"
	"github.com/meikuraledutech/topology/config"
	"github.com/meikuraledutech/topology/postgres"
	"github.com/meikuraledutech/topology/sqlite"
)

// Open connects to PostgreSQL when a database URL is configured and falls
// back to the SQLite workspace file otherwise. The returned func releases the
// connection.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (topology.Store, func(), error) {
	if cfg.UsePostgres() {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		log.Debug("store opened", "backend", "postgres")
		return postgres.New(pool), pool.Close, nil
	}

	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("store opened", "backend", "sqlite", "path", cfg.SQLitePath)
	return store, func() { _ = store.Close() }, nil
}
