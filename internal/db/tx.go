package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx executa fn dentro de uma transação: commit quando fn devolve nil,
// rollback em qualquer erro. O rollback após o commit é um no-op.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(txCtx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
