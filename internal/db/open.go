package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/econia-labs/aggregator/internal/config"
)

// Open connects to Postgres per cfg.Database and wraps the connection in
// a ConnectionPool with default pool sizing, matching the DSN format the
// indexer itself uses so the aggregator can point at the same database.
func Open(cfg *config.Config, logger *zap.Logger) (*ConnectionPool, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode,
	)

	conn, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	return NewConnectionPool(conn, logger, ConnectionPoolOptions{}), nil
}
