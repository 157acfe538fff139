package aggregator

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/econia-labs/aggregator/internal/aggregator/aggerr"
)

// pgUniqueViolation is the SQLSTATE Postgres reports for a primary/unique
// key conflict.
const pgUniqueViolation = "23505"

// markAggregated is the single choke point every applier funnels through
// to record that an event has been folded into derived state. The
// insert happens inside the same transaction as the mutation it
// attests to, so commit makes both visible together and abort erases
// both — invariant 1 from the data model.
//
// A unique-key conflict on the insert means the loader's exclusion
// filter missed a row, or a concurrent committer raced this one; it is
// reported as a DataIntegrity error that aborts the tick rather than
// being swallowed. Any other failure (connection
// loss, statement timeout, serialization conflict) is a TransientDB
// error the next ready tick will naturally retry.
func markAggregated(ctx context.Context, store HistoryStore, key EventKey) error {
	err := store.MarkAggregated(ctx, key)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return aggerr.Integrity(err, "ledger insert collision")
	}
	return aggerr.Transient(err, "ledger insert")
}
