package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

// Row maps column names to values for InsertOrAbort and UpdateOrReplace.
type Row map[string]any

// columns returns the row's column names sorted, so statements are stable.
func (r Row) columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Exec runs a statement on the transaction carried by ctx, if any.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapExec(err, query)
	}
	return res, nil
}

// ExecAll runs statements in order, stopping at the first failure.
func (s *Store) ExecAll(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertOrAbort inserts one row. A constraint violation aborts the
// statement and is reported with code store.constraint.conflict.
func (s *Store) InsertOrAbort(ctx context.Context, table string, row Row) error {
	cols := row.columns()
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}
	query := fmt.Sprintf("INSERT OR ABORT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))
	_, err := s.Exec(ctx, query, args...)
	return err
}

// UpdateOrReplace sets the given columns on the rows matching where.
// Rows that would violate a uniqueness constraint are replaced.
func (s *Store) UpdateOrReplace(ctx context.Context, table string, values Row, where string, whereArgs ...any) (int64, error) {
	cols := values.columns()
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(whereArgs))
	for i, c := range cols {
		sets[i] = c + " = ?"
		args = append(args, values[c])
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE OR REPLACE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)
	res, err := s.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the rows matching where and reports whether any existed.
func (s *Store) Delete(ctx context.Context, table, where string, args ...any) (bool, error) {
	res, err := s.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "rows affected")
	}
	return n > 0, nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return "?" + strings.Repeat(", ?", n-1)
}

func wrapExec(err error, query string) error {
	if IsConstraintViolation(err) {
		return glerr.Wrap(err, glerr.CodeStoreConstraintConflict, "constraint violation",
			glerr.Field("sql", query))
	}
	return glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "statement failed", glerr.Field("sql", query))
}
