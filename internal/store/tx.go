package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

// Querier is the statement surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txKey scopes the context value to one store, so a transaction of one
// database is never picked up by another.
type txKey struct{ s *Store }

var savepointSeq atomic.Uint64

// InTransaction reports whether ctx carries a transaction of this store.
func (s *Store) InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{s}).(*sql.Tx)
	return ok
}

// Conn returns the transaction carried by ctx, or the database itself.
func (s *Store) Conn(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{s}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// Transaction runs fn inside a transaction. When ctx already carries a
// transaction of this store, fn joins it and the outer call decides the
// outcome. Otherwise a new transaction is started, committed when fn
// returns nil and rolled back when fn fails or panics.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.InTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return glerr.Wrap(err, glerr.CodeStoreTransactionFailure, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{s}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return glerr.Wrap(err, glerr.CodeStoreTransactionFailure, "commit transaction")
	}
	return nil
}

// Savepoint runs fn inside a savepoint of the current transaction, starting
// one if needed. When fn fails, only the work done since the savepoint is
// undone and fn's error is returned; the enclosing transaction stays usable.
func (s *Store) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		name := fmt.Sprintf("sp_%d", savepointSeq.Add(1))
		q := s.Conn(ctx)
		if _, err := q.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			return glerr.Wrap(err, glerr.CodeStoreTransactionFailure, "open savepoint")
		}

		if err := fn(ctx); err != nil {
			if _, rbErr := q.ExecContext(ctx, "ROLLBACK TO "+name); rbErr != nil {
				return errors.Join(err, rbErr)
			}
			if _, relErr := q.ExecContext(ctx, "RELEASE "+name); relErr != nil {
				return errors.Join(err, relErr)
			}
			return err
		}

		if _, err := q.ExecContext(ctx, "RELEASE "+name); err != nil {
			return glerr.Wrap(err, glerr.CodeStoreTransactionFailure, "release savepoint")
		}
		return nil
	})
}
