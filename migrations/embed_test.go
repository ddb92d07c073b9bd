package migrations

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_Ordered(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_households.up.sql", names[0])
	assert.IsNonDecreasing(t, names)
}

func expectPreamble(mock sqlmock.Sqlmock, applied ...string) {
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"name"})
	for _, name := range applied {
		rows.AddRow(name)
	}
	mock.ExpectQuery("SELECT name FROM schema_migrations").WillReturnRows(rows)
}

func TestApply(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.Greater(t, len(names), 1)

	t.Run("fresh database runs and records every file", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectPreamble(mock)
		for _, name := range names {
			mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(name).WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		require.NoError(t, Apply(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("recorded files are skipped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectPreamble(mock, names[:len(names)-1]...)
		last := names[len(names)-1]
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(last).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, Apply(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fully migrated database runs nothing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectPreamble(mock, names...)
		mock.ExpectCommit()

		require.NoError(t, Apply(context.Background(), db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expectPreamble(mock)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS households").WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		err = Apply(context.Background(), db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "000001_households.up.sql")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
