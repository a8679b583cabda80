package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	glerr "github.com/roach88/graphlite/pkg/errors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db, testLogger()), mock
}

func TestTransaction_Commits(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM Element WHERE handle = ?")).
		WithArgs("oak").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, s.InTransaction(ctx))
		deleted, err := s.Delete(ctx, "Element", "handle = ?", "oak")
		assert.True(t, deleted)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := s.Transaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollsBackOnPanic(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = s.Transaction(context.Background(), func(ctx context.Context) error {
			panic("validator exploded")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_NestedJoinsOuter(t *testing.T) {
	s, mock := newMockStore(t)
	// A single BEGIN/COMMIT pair proves the inner call did not start its own.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT OR ABORT INTO Schema").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(ctx context.Context) error {
		return s.Transaction(ctx, func(ctx context.Context) error {
			return s.InsertOrAbort(ctx, "Schema", Row{"id": "s", "handle": "tree", "version": 1})
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_NestedFailureRollsBackOuter(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.Transaction(context.Background(), func(ctx context.Context) error {
		_ = s.Transaction(ctx, func(ctx context.Context) error { return nil })
		return s.Transaction(ctx, func(ctx context.Context) error { return errors.New("inner") })
	})
	assert.EqualError(t, err, "inner")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavepoint_RollsBackOnlyItsWork(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT sp_\d+`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT OR ABORT INTO Element").
		WillReturnError(errors.New("UNIQUE constraint failed: Element.handle"))
	mock.ExpectExec(`ROLLBACK TO sp_\d+`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`RELEASE sp_\d+`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(ctx context.Context) error {
		spErr := s.Savepoint(ctx, func(ctx context.Context) error {
			return s.InsertOrAbort(ctx, "Element", Row{"id": "1", "handle": "oak"})
		})
		assert.Error(t, spErr)
		assert.True(t, glerr.HasCode(spErr, glerr.CodeStoreDatabaseFailure))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSavepoint_Releases(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT sp_\d+`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`RELEASE sp_\d+`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.Savepoint(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrReplace_SortsColumns(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE OR REPLACE Element SET id = ?, schemaId = ? WHERE handle = ?")).
		WithArgs("2", "s2", "oak").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := s.UpdateOrReplace(context.Background(), "Element", Row{"schemaId": "s2", "id": "2"}, "handle = ?", "oak")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsConstraintViolation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.InsertOrAbort(ctx, "Schema", Row{"id": "s", "handle": "tree", "version": 1}))

	err := s.InsertOrAbort(ctx, "Schema", Row{"id": "s2", "handle": "tree", "version": 1})
	require.Error(t, err)
	assert.True(t, IsConstraintViolation(err))
	assert.True(t, glerr.IsConflict(err))

	assert.False(t, IsConstraintViolation(nil))
	assert.False(t, IsConstraintViolation(errors.New("disk full")))
}

func TestIsConstraintViolation_Modernc(t *testing.T) {
	s := createTestStore(t, WithDriver(DriverModernc))
	ctx := context.Background()
	require.NoError(t, s.InsertOrAbort(ctx, "Schema", Row{"id": "s", "handle": "tree", "version": 1}))

	err := s.InsertOrAbort(ctx, "Schema", Row{"id": "s", "handle": "other", "version": 1})
	assert.True(t, IsConstraintViolation(err))
}
