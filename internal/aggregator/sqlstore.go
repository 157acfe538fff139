package aggregator

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// sqlStore is the Postgres-backed HistoryStore. One instance is bound to
// a single tick's transaction; it is never shared across ticks.
type sqlStore struct {
	tx     *sqlx.Tx
	logger *zap.Logger
}

// NewSQLStoreFactory returns a StoreFactory that binds a fresh sqlStore
// to whatever transaction the tick driver opened.
func NewSQLStoreFactory(logger *zap.Logger) StoreFactory {
	return func(tx *sqlx.Tx) HistoryStore {
		return &sqlStore{tx: tx, logger: logger}
	}
}

type placeLimitRow struct {
	MarketID          uint64          `db:"market_id"`
	OrderID           uint64          `db:"order_id"`
	User              []byte          `db:"user"`
	CustodianID       uint64          `db:"custodian_id"`
	Side              string          `db:"side"`
	SelfMatchBehavior string          `db:"self_match_behavior"`
	Restriction       string          `db:"restriction"`
	Price             decimal.Decimal `db:"price"`
	InitialSize       decimal.Decimal `db:"initial_size"`
	Integrator        []byte          `db:"integrator"`
	Time              time.Time       `db:"time"`
	TxnVersion        uint64          `db:"txn_version"`
	EventIdx          uint64          `db:"event_idx"`
}

// appendLimit appends a positional LIMIT clause to query when limit is
// positive, after the existing ORDER BY so the cap takes the lowest
// (txn_version, event_idx) rows first rather than an arbitrary subset.
func appendLimit(query string, limit int) (string, []interface{}) {
	if limit <= 0 {
		return query, nil
	}
	return query + "\n\tLIMIT $1", []interface{}{limit}
}

func (r placeLimitRow) toEvent() PlaceLimitEvent {
	return PlaceLimitEvent{
		EventKey:          EventKey{TxnVersion: r.TxnVersion, EventIdx: r.EventIdx},
		MarketID:          r.MarketID,
		OrderID:           r.OrderID,
		User:              Address(r.User),
		CustodianID:       r.CustodianID,
		Side:              Side(r.Side),
		SelfMatchBehavior: r.SelfMatchBehavior,
		Restriction:       r.Restriction,
		Price:             r.Price,
		InitialSize:       r.InitialSize,
		Integrator:        Address(r.Integrator),
		Time:              r.Time,
	}
}

const selectUnaggregatedPlaceLimits = `
	SELECT market_id, order_id, "user", custodian_id, side, self_match_behavior,
	       restriction, price, initial_size, integrator, time, txn_version, event_idx
	FROM place_limit_order_events p
	WHERE NOT EXISTS (
		SELECT 1 FROM aggregator.aggregated_events a
		WHERE a.txn_version = p.txn_version AND a.event_idx = p.event_idx
	)
	ORDER BY txn_version, event_idx`

func (s *sqlStore) LoadUnaggregatedPlaceLimits(ctx context.Context, limit int) ([]PlaceLimitEvent, error) {
	query, args := appendLimit(selectUnaggregatedPlaceLimits, limit)
	var rows []placeLimitRow
	if err := s.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	events := make([]PlaceLimitEvent, len(rows))
	for i, r := range rows {
		events[i] = r.toEvent()
	}
	return events, nil
}

type placeMarketRow struct {
	MarketID          uint64          `db:"market_id"`
	OrderID           uint64          `db:"order_id"`
	User              []byte          `db:"user"`
	CustodianID       uint64          `db:"custodian_id"`
	Direction         string          `db:"direction"`
	SelfMatchBehavior string          `db:"self_match_behavior"`
	Integrator        []byte          `db:"integrator"`
	Size              decimal.Decimal `db:"size"`
	Time              time.Time       `db:"time"`
	TxnVersion        uint64          `db:"txn_version"`
	EventIdx          uint64          `db:"event_idx"`
}

const selectUnaggregatedPlaceMarkets = `
	SELECT market_id, order_id, "user", custodian_id, direction, self_match_behavior,
	       integrator, size, time, txn_version, event_idx
	FROM place_market_order_events p
	WHERE NOT EXISTS (
		SELECT 1 FROM aggregator.aggregated_events a
		WHERE a.txn_version = p.txn_version AND a.event_idx = p.event_idx
	)
	ORDER BY txn_version, event_idx`

func (s *sqlStore) LoadUnaggregatedPlaceMarkets(ctx context.Context, limit int) ([]PlaceMarketEvent, error) {
	query, args := appendLimit(selectUnaggregatedPlaceMarkets, limit)
	var rows []placeMarketRow
	if err := s.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	events := make([]PlaceMarketEvent, len(rows))
	for i, r := range rows {
		events[i] = PlaceMarketEvent{
			EventKey:          EventKey{TxnVersion: r.TxnVersion, EventIdx: r.EventIdx},
			MarketID:          r.MarketID,
			OrderID:           r.OrderID,
			User:              Address(r.User),
			CustodianID:       r.CustodianID,
			Direction:         Direction(r.Direction),
			SelfMatchBehavior: r.SelfMatchBehavior,
			Integrator:        Address(r.Integrator),
			Size:              r.Size,
			Time:              r.Time,
		}
	}
	return events, nil
}

type placeSwapRow struct {
	MarketID       uint64          `db:"market_id"`
	OrderID        uint64          `db:"order_id"`
	Direction      string          `db:"direction"`
	LimitPrice     decimal.Decimal `db:"limit_price"`
	SigningAccount []byte          `db:"signing_account"`
	MinBase        decimal.Decimal `db:"min_base"`
	MaxBase        decimal.Decimal `db:"max_base"`
	MinQuote       decimal.Decimal `db:"min_quote"`
	MaxQuote       decimal.Decimal `db:"max_quote"`
	Integrator     []byte          `db:"integrator"`
	Time           time.Time       `db:"time"`
	TxnVersion     uint64          `db:"txn_version"`
	EventIdx       uint64          `db:"event_idx"`
}

const selectUnaggregatedPlaceSwaps = `
	SELECT market_id, order_id, direction, limit_price, signing_account,
	       min_base, max_base, min_quote, max_quote, integrator, time, txn_version, event_idx
	FROM place_swap_order_events p
	WHERE NOT EXISTS (
		SELECT 1 FROM aggregator.aggregated_events a
		WHERE a.txn_version = p.txn_version AND a.event_idx = p.event_idx
	)
	ORDER BY txn_version, event_idx`

func (s *sqlStore) LoadUnaggregatedPlaceSwaps(ctx context.Context, limit int) ([]PlaceSwapEvent, error) {
	query, args := appendLimit(selectUnaggregatedPlaceSwaps, limit)
	var rows []placeSwapRow
	if err := s.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	events := make([]PlaceSwapEvent, len(rows))
	for i, r := range rows {
		events[i] = PlaceSwapEvent{
			EventKey:       EventKey{TxnVersion: r.TxnVersion, EventIdx: r.EventIdx},
			MarketID:       r.MarketID,
			OrderID:        r.OrderID,
			Direction:      Direction(r.Direction),
			LimitPrice:     r.LimitPrice,
			SigningAccount: Address(r.SigningAccount),
			MinBase:        r.MinBase,
			MaxBase:        r.MaxBase,
			MinQuote:       r.MinQuote,
			MaxQuote:       r.MaxQuote,
			Integrator:     Address(r.Integrator),
			Time:           r.Time,
		}
	}
	return events, nil
}

type fillRow struct {
	MarketID     uint64          `db:"market_id"`
	MakerOrderID uint64          `db:"maker_order_id"`
	TakerOrderID uint64          `db:"taker_order_id"`
	Size         decimal.Decimal `db:"size"`
	MakerAddress []byte          `db:"maker_address"`
	EmitAddress  []byte          `db:"emit_address"`
	Time         time.Time       `db:"time"`
	TxnVersion   uint64          `db:"txn_version"`
	EventIdx     uint64          `db:"event_idx"`
}

const selectUnaggregatedFills = `
	SELECT market_id, maker_order_id, taker_order_id, size, maker_address,
	       emit_address, time, txn_version, event_idx
	FROM fill_events f
	WHERE NOT EXISTS (
		SELECT 1 FROM aggregator.aggregated_events a
		WHERE a.txn_version = f.txn_version AND a.event_idx = f.event_idx
	)
	ORDER BY txn_version, event_idx`

func (s *sqlStore) LoadUnaggregatedFills(ctx context.Context, limit int) ([]FillEvent, error) {
	query, args := appendLimit(selectUnaggregatedFills, limit)
	var rows []fillRow
	if err := s.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	events := make([]FillEvent, len(rows))
	for i, r := range rows {
		events[i] = FillEvent{
			EventKey:     EventKey{TxnVersion: r.TxnVersion, EventIdx: r.EventIdx},
			MarketID:     r.MarketID,
			MakerOrderID: r.MakerOrderID,
			TakerOrderID: r.TakerOrderID,
			Size:         r.Size,
			MakerAddress: Address(r.MakerAddress),
			EmitAddress:  Address(r.EmitAddress),
			Time:         r.Time,
		}
	}
	return events, nil
}

type changeRow struct {
	MarketID   uint64          `db:"market_id"`
	OrderID    uint64          `db:"order_id"`
	NewSize    decimal.Decimal `db:"new_size"`
	Time       time.Time       `db:"time"`
	TxnVersion uint64          `db:"txn_version"`
	EventIdx   uint64          `db:"event_idx"`
}

const selectUnaggregatedChanges = `
	SELECT market_id, order_id, new_size, time, txn_version, event_idx
	FROM change_order_size_events c
	WHERE NOT EXISTS (
		SELECT 1 FROM aggregator.aggregated_events a
		WHERE a.txn_version = c.txn_version AND a.event_idx = c.event_idx
	)
	ORDER BY txn_version, event_idx`

func (s *sqlStore) LoadUnaggregatedChanges(ctx context.Context, limit int) ([]ChangeSizeEvent, error) {
	query, args := appendLimit(selectUnaggregatedChanges, limit)
	var rows []changeRow
	if err := s.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	events := make([]ChangeSizeEvent, len(rows))
	for i, r := range rows {
		events[i] = ChangeSizeEvent{
			EventKey: EventKey{TxnVersion: r.TxnVersion, EventIdx: r.EventIdx},
			MarketID: r.MarketID,
			OrderID:  r.OrderID,
			NewSize:  r.NewSize,
			Time:     r.Time,
		}
	}
	return events, nil
}

type cancelRow struct {
	MarketID   uint64    `db:"market_id"`
	OrderID    uint64    `db:"order_id"`
	Time       time.Time `db:"time"`
	TxnVersion uint64    `db:"txn_version"`
	EventIdx   uint64    `db:"event_idx"`
}

const selectUnaggregatedCancels = `
	SELECT market_id, order_id, time, txn_version, event_idx
	FROM cancel_order_events c
	WHERE NOT EXISTS (
		SELECT 1 FROM aggregator.aggregated_events a
		WHERE a.txn_version = c.txn_version AND a.event_idx = c.event_idx
	)
	ORDER BY txn_version, event_idx`

func (s *sqlStore) LoadUnaggregatedCancels(ctx context.Context, limit int) ([]CancelEvent, error) {
	query, args := appendLimit(selectUnaggregatedCancels, limit)
	var rows []cancelRow
	if err := s.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	events := make([]CancelEvent, len(rows))
	for i, r := range rows {
		events[i] = CancelEvent{
			EventKey: EventKey{TxnVersion: r.TxnVersion, EventIdx: r.EventIdx},
			MarketID: r.MarketID,
			OrderID:  r.OrderID,
			Time:     r.Time,
		}
	}
	return events, nil
}

func (s *sqlStore) GetMarketRegistration(ctx context.Context, marketID uint64) (*MarketRegistration, error) {
	var row struct {
		MarketID uint64          `db:"market_id"`
		LotSize  decimal.Decimal `db:"lot_size"`
	}
	err := s.tx.GetContext(ctx, &row, `SELECT market_id, lot_size FROM market_registration_events WHERE market_id = $1`, marketID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &MarketRegistration{MarketID: row.MarketID, LotSize: row.LotSize}, nil
}

func (s *sqlStore) InsertUserHistory(ctx context.Context, row UserHistory) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO aggregator.user_history (
			market_id, order_id, created_at, last_updated_at, integrator,
			total_filled, remaining_size, order_status, order_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.MarketID, row.OrderID, row.CreatedAt, row.LastUpdatedAt, []byte(row.Integrator),
		row.TotalFilled, row.RemainingSize, string(row.OrderStatus), string(row.OrderType),
	)
	return err
}

func (s *sqlStore) InsertUserHistoryLimit(ctx context.Context, row UserHistoryLimit) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO aggregator.user_history_limit (
			market_id, order_id, "user", custodian_id, side, self_match_behavior,
			restriction, price, last_increase_stamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.MarketID, row.OrderID, []byte(row.User), row.CustodianID, string(row.Side),
		row.SelfMatchBehavior, row.Restriction, row.Price, row.LastIncreaseStamp,
	)
	return err
}

func (s *sqlStore) InsertUserHistoryMarket(ctx context.Context, row UserHistoryMarket) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO aggregator.user_history_market (
			market_id, order_id, "user", custodian_id, direction, self_match_behavior
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		row.MarketID, row.OrderID, []byte(row.User), row.CustodianID, string(row.Direction), row.SelfMatchBehavior,
	)
	return err
}

func (s *sqlStore) InsertUserHistorySwap(ctx context.Context, row UserHistorySwap) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO aggregator.user_history_swap (
			market_id, order_id, direction, limit_price, signing_account,
			min_base, max_base, min_quote, max_quote
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		row.MarketID, row.OrderID, string(row.Direction), row.LimitPrice, []byte(row.SigningAccount),
		row.MinBase, row.MaxBase, row.MinQuote, row.MaxQuote,
	)
	return err
}

func (s *sqlStore) GetUserHistory(ctx context.Context, marketID, orderID uint64) (*UserHistory, error) {
	var row struct {
		MarketID      uint64          `db:"market_id"`
		OrderID       uint64          `db:"order_id"`
		CreatedAt     time.Time       `db:"created_at"`
		LastUpdatedAt *time.Time      `db:"last_updated_at"`
		Integrator    []byte          `db:"integrator"`
		TotalFilled   decimal.Decimal `db:"total_filled"`
		RemainingSize decimal.Decimal `db:"remaining_size"`
		OrderStatus   string          `db:"order_status"`
		OrderType     string          `db:"order_type"`
	}
	err := s.tx.GetContext(ctx, &row, `
		SELECT market_id, order_id, created_at, last_updated_at, integrator,
		       total_filled, remaining_size, order_status, order_type
		FROM aggregator.user_history WHERE market_id = $1 AND order_id = $2`, marketID, orderID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &UserHistory{
		MarketID:      row.MarketID,
		OrderID:       row.OrderID,
		CreatedAt:     row.CreatedAt,
		LastUpdatedAt: row.LastUpdatedAt,
		Integrator:    Address(row.Integrator),
		TotalFilled:   row.TotalFilled,
		RemainingSize: row.RemainingSize,
		OrderStatus:   OrderStatus(row.OrderStatus),
		OrderType:     OrderType(row.OrderType),
	}, nil
}

func (s *sqlStore) GetUserHistoryLimit(ctx context.Context, marketID, orderID uint64) (*UserHistoryLimit, error) {
	var row struct {
		MarketID          uint64          `db:"market_id"`
		OrderID           uint64          `db:"order_id"`
		User              []byte          `db:"user"`
		CustodianID       uint64          `db:"custodian_id"`
		Side              string          `db:"side"`
		SelfMatchBehavior string          `db:"self_match_behavior"`
		Restriction       string          `db:"restriction"`
		Price             decimal.Decimal `db:"price"`
		LastIncreaseStamp decimal.Decimal `db:"last_increase_stamp"`
	}
	err := s.tx.GetContext(ctx, &row, `
		SELECT market_id, order_id, "user", custodian_id, side, self_match_behavior,
		       restriction, price, last_increase_stamp
		FROM aggregator.user_history_limit WHERE market_id = $1 AND order_id = $2`, marketID, orderID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &UserHistoryLimit{
		MarketID:          row.MarketID,
		OrderID:           row.OrderID,
		User:              Address(row.User),
		CustodianID:       row.CustodianID,
		Side:              Side(row.Side),
		SelfMatchBehavior: row.SelfMatchBehavior,
		Restriction:       row.Restriction,
		Price:             row.Price,
		LastIncreaseStamp: row.LastIncreaseStamp,
	}, nil
}

func (s *sqlStore) UpdateUserHistoryFill(ctx context.Context, marketID, orderID uint64, newRemaining, newTotalFilled decimal.Decimal, newStatus OrderStatus, updatedAt time.Time) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE aggregator.user_history
		SET remaining_size = $1, total_filled = $2, order_status = $3, last_updated_at = $4
		WHERE market_id = $5 AND order_id = $6`,
		newRemaining, newTotalFilled, string(newStatus), updatedAt, marketID, orderID,
	)
	return err
}

func (s *sqlStore) UpdateUserHistoryChange(ctx context.Context, marketID, orderID uint64, newRemaining decimal.Decimal, updatedAt time.Time) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE aggregator.user_history
		SET remaining_size = $1, last_updated_at = $2
		WHERE market_id = $3 AND order_id = $4`,
		newRemaining, updatedAt, marketID, orderID,
	)
	return err
}

func (s *sqlStore) UpdateUserHistoryLimitStamp(ctx context.Context, marketID, orderID uint64, stamp decimal.Decimal) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE aggregator.user_history_limit
		SET last_increase_stamp = $1
		WHERE market_id = $2 AND order_id = $3`,
		stamp, marketID, orderID,
	)
	return err
}

func (s *sqlStore) UpdateUserHistoryCancel(ctx context.Context, marketID, orderID uint64, updatedAt time.Time) (int64, error) {
	result, err := s.tx.ExecContext(ctx, `
		UPDATE aggregator.user_history
		SET order_status = 'cancelled', last_updated_at = $1
		WHERE market_id = $2 AND order_id = $3`,
		updatedAt, marketID, orderID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *sqlStore) MarkAggregated(ctx context.Context, key EventKey) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO aggregator.aggregated_events (txn_version, event_idx) VALUES ($1, $2)`,
		key.TxnVersion, key.EventIdx,
	)
	return err
}

func (s *sqlStore) CountAggregatedEvents(ctx context.Context) (int64, error) {
	var n int64
	err := s.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM aggregator.aggregated_events`)
	return n, err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
