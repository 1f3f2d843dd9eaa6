package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"go-todos-quickstart/backend/internal/config"
	"go-todos-quickstart/backend/internal/database"
	"go-todos-quickstart/backend/internal/models"
	"go-todos-quickstart/backend/internal/repositories"
	"go-todos-quickstart/backend/internal/routes"
)

// SetupTestDB はテスト用のデータベース接続を確立し、todos テーブルを空の状態で用意します。
// TEST_DB_HOST が設定されていない場合はテストをスキップします。
func SetupTestDB(t *testing.T) (*sql.DB, *gin.Engine, *repositories.TodoRepository) {
	t.Helper()

	// リポジトリ直下の .env (存在すれば)
	_ = godotenv.Load("../../.env")

	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST is not set; skipping database test")
	}

	cfg := config.Default().DB
	cfg.Host = host
	if v := os.Getenv("TEST_DB_DRIVER"); v != "" {
		cfg.Driver = v
	}
	if v := os.Getenv("TEST_DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		require.NoError(t, err, "TEST_DB_PORT must be a number")
		cfg.Port = port
	}
	if v := os.Getenv("TEST_DB_NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv("TEST_DB_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("TEST_DB_PASS"); v != "" {
		cfg.Password = v
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.EnsureSchema(ctx, db, cfg.Driver); err != nil {
		t.Fatalf("Failed to create todos table: %v", err)
	}

	// テストのたびにクリーンな状態にする (IDの採番もリセット)
	truncate := "TRUNCATE TABLE todos"
	if cfg.Driver == config.DriverPostgres {
		truncate += " RESTART IDENTITY"
	}
	if _, err := db.ExecContext(ctx, truncate); err != nil {
		t.Fatalf("Failed to truncate todos table: %v", err)
	}

	todoRepo := repositories.NewTodoRepository(db, cfg.Driver)
	return db, SetupTestRouter(t, todoRepo), todoRepo
}

// SetupTestRouter はテスト用のGinルーターをセットアップします。
func SetupTestRouter(t *testing.T, store repositories.TodoStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return routes.SetupRouter(store, routes.DefaultOptions())
}

// CreateTestTodo はAPI経由でTODOを作成し、作成されたTODOを返します。
func CreateTestTodo(t *testing.T, router *gin.Engine, task string) *models.Todo {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"task": task})

	req, _ := http.NewRequest(http.MethodPost, "/todos", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, "TODO作成に失敗しました: %s", resp.Body.String())

	var createdTodo models.Todo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &createdTodo))
	return &createdTodo
}

// ListTestTodos は GET /todos を呼び出し、ステータスと生のボディを検証してから結果を返します。
func ListTestTodos(t *testing.T, router *gin.Engine) []models.Todo {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, "/todos", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var todos []models.Todo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &todos))
	return todos
}

// StubStore は常に決まった結果を返すTodoStoreです。エラー系のテストに使います。
type StubStore struct {
	Err   error
	Todos []*models.Todo
}

func (s *StubStore) FindAll(ctx context.Context) ([]*models.Todo, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Todos, nil
}

func (s *StubStore) Create(ctx context.Context, task string) (*models.Todo, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return &models.Todo{ID: int64(len(s.Todos) + 1), Task: task}, nil
}

func (s *StubStore) Ping(ctx context.Context) error {
	return s.Err
}
