package db

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ConnectionPool wraps a sqlx.DB with the pool sizing and background stats
// logging the aggregator's database pool needs. It is
// intentionally thin: every read/write the tick driver performs goes
// through its own serializable *sqlx.Tx (see tick.go), not through this
// type, so ConnectionPool itself only ever hands out that *sqlx.DB,
// pings it at startup, and closes it at shutdown.
type ConnectionPool struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// ConnectionPoolOptions configures pool sizing. Zero values fall back to
// defaults in NewConnectionPool.
type ConnectionPoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// NewConnectionPool configures db's pool limits and starts a background
// stats logger.
func NewConnectionPool(db *sqlx.DB, logger *zap.Logger, options ConnectionPoolOptions) *ConnectionPool {
	if options.MaxOpenConns == 0 {
		options.MaxOpenConns = 25
	}
	if options.MaxIdleConns == 0 {
		options.MaxIdleConns = 10
	}
	if options.ConnLifetime == 0 {
		options.ConnLifetime = 5 * time.Minute
	}

	db.SetMaxOpenConns(options.MaxOpenConns)
	db.SetMaxIdleConns(options.MaxIdleConns)
	db.SetConnMaxLifetime(options.ConnLifetime)

	pool := &ConnectionPool{db: db, logger: logger}
	go pool.logStats()

	logger.Info("database connection pool initialized",
		zap.Int("max_open_conns", options.MaxOpenConns),
		zap.Int("max_idle_conns", options.MaxIdleConns),
		zap.Duration("conn_lifetime", options.ConnLifetime),
	)

	return pool
}

// logStats periodically logs pool occupancy, the one piece of ambient
// observability that does not require a tick to have run.
func (p *ConnectionPool) logStats() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := p.db.Stats()
		p.logger.Debug("database connection pool stats",
			zap.Int("open_connections", stats.OpenConnections),
			zap.Int("in_use_connections", stats.InUse),
			zap.Int("idle_connections", stats.Idle),
			zap.Int64("wait_count", stats.WaitCount),
			zap.Duration("wait_duration", stats.WaitDuration),
		)
	}
}

// GetDB returns the underlying *sqlx.DB the tick driver opens its
// per-tick transactions against.
func (p *ConnectionPool) GetDB() *sqlx.DB {
	return p.db
}

// Ping verifies the connection is alive.
func (p *ConnectionPool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the pool.
func (p *ConnectionPool) Close() error {
	p.logger.Info("closing database connection pool")
	return p.db.Close()
}
