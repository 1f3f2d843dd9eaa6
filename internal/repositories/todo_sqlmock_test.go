package repositories_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todos-quickstart/backend/internal/config"
	"go-todos-quickstart/backend/internal/repositories"
)

// newMockDB はSQL文を完全一致で照合する sqlmock を返します。
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestTodoRepository_FindAllNoRowsIsEmptySlice(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id, task FROM todos ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "task"}))

	todos, err := repositories.NewTodoRepository(db, config.DriverPostgres).FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

func TestTodoRepository_FindAllMapsRows(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT id, task FROM todos ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "task"}).
			AddRow(1, "buy milk").
			AddRow(2, "walk dog"))

	todos, err := repositories.NewTodoRepository(db, config.DriverMySQL).FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, int64(1), todos[0].ID)
	assert.Equal(t, "buy milk", todos[0].Task)
	assert.Equal(t, int64(2), todos[1].ID)
	assert.Equal(t, "walk dog", todos[1].Task)
}

func TestTodoRepository_CreatePostgresUsesReturning(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("INSERT INTO todos (task) VALUES ($1) RETURNING id").
		WithArgs("buy milk").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	todo, err := repositories.NewTodoRepository(db, config.DriverPostgres).Create(context.Background(), "buy milk")
	require.NoError(t, err)
	assert.Equal(t, int64(7), todo.ID)
	assert.Equal(t, "buy milk", todo.Task)
}

func TestTodoRepository_CreateMySQLUsesLastInsertID(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO todos (task) VALUES (?)").
		WithArgs("buy milk").
		WillReturnResult(sqlmock.NewResult(42, 1))

	todo, err := repositories.NewTodoRepository(db, config.DriverMySQL).Create(context.Background(), "buy milk")
	require.NoError(t, err)
	assert.Equal(t, int64(42), todo.ID)
	assert.Equal(t, "buy milk", todo.Task)
}

func TestTodoRepository_ErrorsWrapDriverError(t *testing.T) {
	driverErr := errors.New("connection refused")

	t.Run("query", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT id, task FROM todos ORDER BY id").WillReturnError(driverErr)

		_, err := repositories.NewTodoRepository(db, config.DriverPostgres).FindAll(context.Background())
		require.ErrorIs(t, err, driverErr)
		assert.Contains(t, err.Error(), "could not query todos")
	})

	t.Run("insert", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("INSERT INTO todos (task) VALUES (?)").WithArgs("x").WillReturnError(driverErr)

		_, err := repositories.NewTodoRepository(db, config.DriverMySQL).Create(context.Background(), "x")
		require.ErrorIs(t, err, driverErr)
		assert.Contains(t, err.Error(), "could not insert todo")
	})

	t.Run("scan", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("SELECT id, task FROM todos ORDER BY id").
			WillReturnRows(sqlmock.NewRows([]string{"id", "task"}).AddRow("not-a-number", "x"))

		_, err := repositories.NewTodoRepository(db, config.DriverPostgres).FindAll(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not scan todo")
	})
}
