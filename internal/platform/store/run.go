package store

import (
	"context"
	"errors"

	perr "nexuscalc/internal/platform/errors"
	"nexuscalc/internal/platform/logger"
)

// TxAttempts bounds how often RunForClient replays a transaction that hit contention
const TxAttempts = 3

// RunForClient tags ctx with clientID and calls fn inside one transaction. Query traces
// emitted inside fn carry the client id. Serialization failures and deadlocks replay fn in
// a fresh transaction, so fn must not keep state across attempts beyond overwriting it.
func RunForClient(ctx context.Context, tx TxRunner, clientID string, fn func(ctx context.Context, q RowQuerier) error) error {
	if clientID == "" {
		return errors.New("store: empty client id")
	}
	ctx = logger.WithRequest(ctx, "", clientID)

	var err error
	for attempt := 1; attempt <= TxAttempts; attempt++ {
		err = tx.Tx(ctx, func(q RowQuerier) error { return fn(ctx, q) })
		if !perr.IsRetryable(err) {
			return err
		}
		logger.C(ctx).Debug().Err(err).Int("attempt", attempt).Msg("transaction contention, retrying")
	}
	return perr.Wrap(err, perr.ErrorCodeConflict, "concurrent update on client ledger")
}
