package database

import (
	"context"
	"database/sql"

	apperrors "github.com/allisson/envelope/internal/errors"
)

// txKey is a context key type for storing database transactions.
type txKey struct{}

// Querier represents a database query executor (either *sql.DB or *sql.Tx).
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager runs a unit of key store work atomically. Both the SQL manager
// and the file key store implement it; a nested WithTx joins the outer one.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// sqlTxManager implements TxManager for SQL databases.
type sqlTxManager struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewTxManager creates a TxManager for db. Rewrapping reads a key and writes
// its new wrapping in the same transaction, so opts may raise the isolation
// level; nil uses the driver default.
func NewTxManager(db *sql.DB, opts ...*sql.TxOptions) TxManager {
	m := &sqlTxManager{db: db}
	if len(opts) > 0 {
		m.opts = opts[0]
	}
	return m
}

// WithTx executes fn within a transaction, committing when it returns nil.
// A failed rollback is reported together with fn's error.
func (m *sqlTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, m.opts)
	if err != nil {
		return apperrors.Wrap(err, "failed to begin key store transaction")
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return apperrors.Join(err, apperrors.Wrap(rbErr, "failed to roll back key store transaction"))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, "failed to commit key store transaction")
	}
	return nil
}

// GetTx returns the transaction carried by ctx, or db outside WithTx.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}
