package repokit

import "context"

// BeginHook runs first thing inside a transaction, on the tx bound Queryer
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks returns a TxRunner that runs hooks in order before fn, in the same tx.
// A failing hook aborts the transaction.
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	return hookedTx{TxRunner: inner, hooks: hooks}
}

type hookedTx struct {
	TxRunner
	hooks []BeginHook
}

func (h hookedTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hk := range h.hooks {
			if err := hk(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}
