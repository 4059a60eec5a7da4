package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	return db, mock
}

func TestMarkProcessed_FirstInsertWins(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "processed_notifications" .*ON CONFLICT.*DO NOTHING`).
		WithArgs("m1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	first, err := NewProcessedRepository(db).MarkProcessed(context.Background(), "m1")
	require.NoError(t, err)
	require.True(t, first)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessed_ConflictIsDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "processed_notifications" .*ON CONFLICT.*DO NOTHING`).
		WithArgs("m1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	first, err := NewProcessedRepository(db).MarkProcessed(context.Background(), "m1")
	require.NoError(t, err)
	require.False(t, first)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForget(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "processed_notifications" WHERE notification_id = \$1`).
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewProcessedRepository(db).Forget(context.Background(), "m1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
