package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/econia-labs/aggregator/internal/config"
)

// Module provides the database connection pool for the fx application.
var Module = fx.Options(
	fx.Provide(NewForApp),
)

// NewForApp opens the connection pool and wires its shutdown to the fx
// lifecycle.
func NewForApp(lifecycle fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*ConnectionPool, error) {
	pool, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return pool.Close()
		},
	})

	return pool, nil
}
