package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

// Query runs a query on the transaction carried by ctx, if any.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := s.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "query failed", glerr.Field("sql", query))
	}
	return rows, nil
}

// QueryRow runs a single-row query on the transaction carried by ctx.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.Conn(ctx).QueryRowContext(ctx, query, args...)
}

// Exists reports whether query returns at least one row.
func (s *Store) Exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := s.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "exists query failed", glerr.Field("sql", query))
	}
	return true, nil
}

// sqliteConstraint is the primary result code SQLITE_CONSTRAINT.
const sqliteConstraint = 19

// IsConstraintViolation reports whether err comes from a UNIQUE, NOT NULL,
// CHECK or FOREIGN KEY violation, for either supported driver.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if glerr.HasCode(err, glerr.CodeStoreConstraintConflict) {
		return true
	}
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) {
		return mattnErr.Code == sqlite3.ErrConstraint
	}
	var modernErr *sqlite.Error
	if errors.As(err, &modernErr) {
		return modernErr.Code()&0xff == sqliteConstraint
	}
	return false
}
