// Package repokit holds the types domain repos are written against
package repokit

import (
	"context"

	"nexuscalc/internal/platform/store"
)

type (
	// Queryer is the read and write surface a repo method runs on
	Queryer = store.RowQuerier
	// TxRunner runs a function inside one transaction
	TxRunner = store.TxRunner
	// Rows is a result set
	Rows = store.Rows
	// Row is a single row result
	Row = store.Row
	// CommandTag reports what a write touched
	CommandTag = store.CommandTag
)

// WithTx runs fn inside a transaction on tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}
