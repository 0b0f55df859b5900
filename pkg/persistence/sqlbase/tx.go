package sqlbase

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukex/regflow/pkg/persistence"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream repositories.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}

	return context.WithValue(ctx, txKey, tx)
}

// TxFrom extracts a SQL transaction from context if present.
func TxFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)

	return tx, ok
}

// Querier is the part of *sql.DB and *sql.Tx repositories use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// QuerierFrom returns the context transaction, or db when there is none.
func QuerierFrom(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}

	return db
}

// TxManager begins, commits and rolls back the transaction carried by the context.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Begin(ctx context.Context) (context.Context, error) {
	if _, ok := TxFrom(ctx); ok {
		return ctx, persistence.ErrTransactionActive
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return WithTx(ctx, tx), nil
}

func (m *TxManager) Commit(ctx context.Context) error {
	tx, ok := TxFrom(ctx)
	if !ok {
		return persistence.ErrNoTransaction
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (m *TxManager) Rollback(ctx context.Context) error {
	tx, ok := TxFrom(ctx)
	if !ok {
		return persistence.ErrNoTransaction
	}

	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}

	return nil
}
