package database

import (
	"context"
	"database/sql"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type txContextKey struct{}

// Tx is a catalog transaction. Commit and Rollback on a joined transaction are
// no-ops; the caller that began it finishes it.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transaction is a sqlx transaction that can be finished once
type Transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
	joined bool
	done   *bool
}

// GetTx joins the transaction bound to ctx or begins a new one and binds it to
// the returned context
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if outer, ok := ctx.Value(txContextKey{}).(*Transaction); ok && !*outer.done {
		return ctx, &Transaction{Tx: outer.Tx, logger: logger, joined: true, done: outer.done}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return ctx, nil, errors.Wrap(err, "failed to begin transaction")
	}

	t := &Transaction{Tx: tx, logger: logger, done: new(bool)}
	return context.WithValue(ctx, txContextKey{}, t), t, nil
}

func (t *Transaction) Commit(ctx context.Context) error {
	return t.finish(ctx, "commit", t.Tx.Commit)
}

// Rollback is safe to defer; it does nothing after Commit
func (t *Transaction) Rollback(ctx context.Context) error {
	return t.finish(ctx, "rollback", t.Tx.Rollback)
}

func (t *Transaction) finish(ctx context.Context, op string, fn func() error) error {
	if t.joined || *t.done {
		return nil
	}
	*t.done = true
	if err := fn(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("Failed to %s transaction", op)
		return errors.Wrapf(err, "failed to %s transaction", op)
	}
	return nil
}
