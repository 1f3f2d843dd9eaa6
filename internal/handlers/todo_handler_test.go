package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todos-quickstart/backend/internal/handlers"
	"go-todos-quickstart/backend/internal/models"
	"go-todos-quickstart/backend/internal/repositories"
	"go-todos-quickstart/backend/internal/services"
	"go-todos-quickstart/backend/testutil"
)

func TestBannerHandler(t *testing.T) {
	r := testutil.SetupTestRouter(t, repositories.NewMemoryTodoRepository())

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handlers.Banner, w.Body.String())
}

func TestCreateTodo_Success(t *testing.T) {
	r := testutil.SetupTestRouter(t, repositories.NewMemoryTodoRepository())

	jsonValue, _ := json.Marshal(models.CreateTodoRequest{Task: "buy milk"})
	req, _ := http.NewRequest(http.MethodPost, "/todos", bytes.NewBuffer(jsonValue))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP Status Code 201 Created")
	var createdTodo models.Todo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createdTodo))
	assert.Positive(t, createdTodo.ID)
	assert.Equal(t, "buy milk", createdTodo.Task)

	todos := testutil.ListTestTodos(t, r)
	require.Len(t, todos, 1)
	assert.Equal(t, "buy milk", todos[0].Task)
	assert.Equal(t, createdTodo.ID, todos[0].ID)
}

func TestCreateTodo_InvalidPayload(t *testing.T) {
	r := testutil.SetupTestRouter(t, repositories.NewMemoryTodoRepository())

	tests := []struct {
		name        string
		body        string
		wantDetails string
	}{
		{name: "missing task field", body: `{"title": "wrong field"}`, wantDetails: services.ErrEmptyTask.Error()},
		{name: "empty task", body: `{"task": ""}`, wantDetails: services.ErrEmptyTask.Error()},
		{name: "task is not a string", body: `{"task": 42}`},
		{name: "malformed json", body: `{"task": `},
		{name: "empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, "/todos", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "Invalid request payload", resp["error"])
			assert.NotEmpty(t, resp["details"])
			if tt.wantDetails != "" {
				assert.Equal(t, tt.wantDetails, resp["details"])
			}
		})
	}

	// 何も作成されていないこと
	assert.Empty(t, testutil.ListTestTodos(t, r))
}

func TestGetTodos_EmptyReturnsArray(t *testing.T) {
	r := testutil.SetupTestRouter(t, &testutil.StubStore{})

	req, _ := http.NewRequest(http.MethodGet, "/todos", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateTodo_SequentialIDsIncrease(t *testing.T) {
	r := testutil.SetupTestRouter(t, repositories.NewMemoryTodoRepository())

	first := testutil.CreateTestTodo(t, r, "first")
	second := testutil.CreateTestTodo(t, r, "second")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Greater(t, second.ID, first.ID)
}

func TestCreateTodo_ConcurrentRequestsGetDistinctIDs(t *testing.T) {
	r := testutil.SetupTestRouter(t, repositories.NewMemoryTodoRepository())

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"task":"parallel"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusCreated {
				ids <- -1
				return
			}
			var todo models.Todo
			if err := json.Unmarshal(w.Body.Bytes(), &todo); err != nil {
				ids <- -1
				return
			}
			ids <- todo.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		require.Positive(t, id)
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, testutil.ListTestTodos(t, r), n)
}

func TestStoreFailureReturnsRawError(t *testing.T) {
	r := testutil.SetupTestRouter(t, &testutil.StubStore{Err: errors.New("relation \"todos\" does not exist")})

	t.Run("list", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/todos", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, `relation "todos" does not exist`, w.Body.String())
	})

	t.Run("create", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"task":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, `relation "todos" does not exist`, w.Body.String())
	})
}

func TestStoreFailureUnwrapsToDriverError(t *testing.T) {
	driverErr := errors.New(`pq: relation "todos" does not exist`)
	r := testutil.SetupTestRouter(t, &testutil.StubStore{Err: fmt.Errorf("could not query todos: %w", driverErr)})

	req, _ := http.NewRequest(http.MethodGet, "/todos", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, driverErr.Error(), w.Body.String())
}

func TestStoreFailureFromSQLRepository(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, task FROM todos ORDER BY id").
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectQuery("INSERT INTO todos (task) VALUES ($1) RETURNING id").
		WithArgs("buy milk").
		WillReturnError(errors.New("connection reset by peer"))

	r := testutil.SetupTestRouter(t, repositories.NewTodoRepository(db, "postgres"))

	req, _ := http.NewRequest(http.MethodGet, "/todos", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "connection reset by peer", w.Body.String())

	req, _ = http.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"task":"buy milk"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "connection reset by peer", w.Body.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}
