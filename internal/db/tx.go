package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is a single atomic unit of work. All multi-row mutations performed by the
// fulfillment engine happen inside one Tx; row locks taken within it are held
// until Commit or Rollback.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager hands out transactions against the underlying store.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

type pgxTxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgxTxManager{pool: pool}
}

func (m *pgxTxManager) Begin(ctx context.Context) (Tx, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("db: failed to begin transaction: %w", err)
	}
	return &PgxTx{tx: tx}, nil
}

// PgxTx wraps a pgx transaction behind the Tx interface.
type PgxTx struct {
	tx pgx.Tx
}

func (t *PgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *PgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// Conn exposes the underlying pgx transaction to the postgres repositories.
func (t *PgxTx) Conn() pgx.Tx {
	return t.tx
}
