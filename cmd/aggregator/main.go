package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/econia-labs/aggregator/internal/aggregator"
	"github.com/econia-labs/aggregator/internal/config"
	"github.com/econia-labs/aggregator/internal/db"
	"github.com/econia-labs/aggregator/internal/metrics"
)

func main() {
	app := fx.New(
		fx.Provide(loadConfig),
		fx.Provide(newLogger),
		db.Module,
		metrics.Module,
		fx.Provide(newAggregator),
		fx.Invoke(runAggregatorLoop),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		panic(err)
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		panic(err)
	}
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(os.Getenv("AGGREGATOR_CONFIG_PATH"))
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return config.InitLogger(cfg)
}

func newAggregator(pool *db.ConnectionPool, logger *zap.Logger, m *metrics.Aggregator, cfg *config.Config) *aggregator.Aggregator {
	return aggregator.NewAggregator(
		pool.GetDB(),
		aggregator.NewSQLStoreFactory(logger),
		logger,
		m,
		aggregator.Config{
			PollInterval:     time.Duration(cfg.Aggregator.PollIntervalSeconds) * time.Second,
			BreakerOpenAfter: cfg.Aggregator.BreakerOpenAfter,
			MaxBatchSize:     cfg.Loader.MaxBatchSize,
		},
	)
}

// runAggregatorLoop wires the aggregator's Ready/Tick contract into the
// fx lifecycle: a background goroutine polls on a short interval and
// runs a tick whenever the model reports it is due, stopping cleanly
// when the fx app shuts down.
func runAggregatorLoop(lifecycle fx.Lifecycle, a *aggregator.Aggregator, logger *zap.Logger) {
	stopCh := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go pollLoop(a, logger, stopCh)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stopCh)
			return nil
		},
	})
}

func pollLoop(a *aggregator.Aggregator, logger *zap.Logger, stopCh <-chan struct{}) {
	const checkInterval = 500 * time.Millisecond
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			if !a.Ready(now) {
				continue
			}
			if err := a.Tick(context.Background()); err != nil {
				logger.Warn("tick returned an error", zap.Error(err))
			}
		}
	}
}
