package aggregator

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/econia-labs/aggregator/internal/aggregator/aggerr"
)

// Collaborator is the contract the poll driver depends on for any
// aggregator model, matching the scheduling contract shared by sibling
// aggregators (e.g. a candle/price pipeline) even though only this
// model's tick logic lives in this package.
type Collaborator interface {
	ModelName() string
	Ready(now time.Time) bool
	PollInterval() time.Duration
	Tick(ctx context.Context) error
}

// Metrics is the observability seam the tick driver reports through.
// CancelOrphanCounter is embedded so ApplyCancel can report through the
// same implementation the driver already holds.
type Metrics interface {
	CancelOrphanCounter
	ObserveTick(model string, result string, duration time.Duration)
	ObserveEventsAggregated(model, eventType string, n int)
	ObserveLedgerRows(model string, n int64)
}

// StoreFactory builds a HistoryStore bound to one tick's transaction.
type StoreFactory func(tx *sqlx.Tx) HistoryStore

// Aggregator drives one full A-through-F pass per tick inside a single
// serializable transaction, per the tick collaborator contract.
type Aggregator struct {
	db           *sqlx.DB
	newStore     StoreFactory
	logger       *zap.Logger
	metrics      Metrics
	pollInterval time.Duration
	maxBatchSize int
	breaker      *gobreaker.CircuitBreaker

	mu          sync.Mutex
	lastSuccess *time.Time
}

// Config configures a new Aggregator.
type Config struct {
	PollInterval time.Duration // default 5s
	// BreakerOpenAfter is the number of consecutive transient failures
	// that opens the circuit breaker, widening the effective retry
	// interval under sustained outage. Zero disables the breaker.
	BreakerOpenAfter uint32
	// MaxBatchSize caps how many rows LoadBatch pulls per input table per
	// tick. Zero means unbounded.
	MaxBatchSize int
}

// NewAggregator constructs the UserHistory aggregator.
func NewAggregator(db *sqlx.DB, newStore StoreFactory, logger *zap.Logger, metrics Metrics, cfg Config) *Aggregator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	var breaker *gobreaker.CircuitBreaker
	if cfg.BreakerOpenAfter > 0 {
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "aggregator.user_history.tick",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerOpenAfter
			},
			// Only transient failures count toward opening the breaker.
			IsSuccessful: func(err error) bool {
				return err == nil || !aggerr.Retryable(err)
			},
		})
	}

	return &Aggregator{
		db:           db,
		newStore:     newStore,
		logger:       logger,
		metrics:      metrics,
		pollInterval: cfg.PollInterval,
		maxBatchSize: cfg.MaxBatchSize,
		breaker:      breaker,
	}
}

// ModelName identifies this aggregator for logging, metrics, and the
// scheduling contract shared across aggregator models.
func (a *Aggregator) ModelName() string { return "UserHistory" }

// PollInterval is the cadence the driver schedules ticks at.
func (a *Aggregator) PollInterval() time.Duration { return a.pollInterval }

// Ready reports whether enough time has passed since the last
// successful tick. On the very first call there has been no successful
// tick, so it is always ready.
func (a *Aggregator) Ready(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSuccess == nil || a.lastSuccess.Add(a.pollInterval).Before(now)
}

// Tick runs one full aggregation pass inside one serializable
// transaction: load unaggregated batches (A), record placements (C),
// merge and apply fills and changes in total order (B, D, E), then apply
// cancels (F). On success the transaction commits and the completion
// timestamp is recorded; on any error the transaction is rolled back and
// nothing is recorded, so the next ready tick retries the same prefix of
// work.
func (a *Aggregator) Tick(ctx context.Context) error {
	run := func() (interface{}, error) {
		return nil, a.runTick(ctx)
	}

	start := time.Now()
	var err error
	if a.breaker != nil {
		_, err = a.breaker.Execute(run)
	} else {
		_, err = run()
	}
	duration := time.Since(start)

	if err != nil {
		a.metrics.ObserveTick(a.ModelName(), "error", duration)
		if aggerr.Retryable(err) {
			a.logger.Warn("tick aborted, will retry", zap.String("model", a.ModelName()), zap.Error(err))
		} else {
			a.logger.Error("tick aborted", zap.String("model", a.ModelName()), zap.Error(err))
		}
		return err
	}

	a.metrics.ObserveTick(a.ModelName(), "success", duration)
	now := time.Now()
	a.mu.Lock()
	a.lastSuccess = &now
	a.mu.Unlock()
	return nil
}

func (a *Aggregator) runTick(ctx context.Context) error {
	tx, err := a.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return aggerr.Transient(err, "begin serializable transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	store := a.newStore(tx)

	batch, err := LoadBatch(ctx, store, a.maxBatchSize)
	if err != nil {
		return err
	}
	if batch.Empty() {
		return commitOrTransient(tx)
	}

	if err := ApplyPlacements(ctx, store, batch); err != nil {
		return err
	}

	merged := MergeFillsAndChanges(batch.Fills, batch.Changes)
	for _, seq := range merged {
		switch {
		case seq.Fill != nil:
			if err := ApplyFill(ctx, store, *seq.Fill); err != nil {
				return err
			}
		case seq.Change != nil:
			if err := ApplyChange(ctx, store, *seq.Change); err != nil {
				return err
			}
		default:
			return aggerr.Logic("sequencer emitted neither a fill nor a change")
		}
	}

	for _, c := range batch.Cancels {
		if err := ApplyCancel(ctx, store, a.logger, a.metrics, c); err != nil {
			return err
		}
	}

	a.metrics.ObserveEventsAggregated(a.ModelName(), "place_limit", len(batch.PlaceLimits))
	a.metrics.ObserveEventsAggregated(a.ModelName(), "place_market", len(batch.PlaceMarkets))
	a.metrics.ObserveEventsAggregated(a.ModelName(), "place_swap", len(batch.PlaceSwaps))
	a.metrics.ObserveEventsAggregated(a.ModelName(), "fill", len(batch.Fills))
	a.metrics.ObserveEventsAggregated(a.ModelName(), "change", len(batch.Changes))
	a.metrics.ObserveEventsAggregated(a.ModelName(), "cancel", len(batch.Cancels))

	if n, err := store.CountAggregatedEvents(ctx); err == nil {
		a.metrics.ObserveLedgerRows(a.ModelName(), n)
	}

	return commitOrTransient(tx)
}

func commitOrTransient(tx *sqlx.Tx) error {
	if err := tx.Commit(); err != nil {
		return aggerr.Transient(err, "commit tick transaction")
	}
	return nil
}
