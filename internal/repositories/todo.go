// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"go-todos-quickstart/backend/internal/config"
	"go-todos-quickstart/backend/internal/models"
)

// TodoStore はTodoの保存先を抽象化したインターフェースです。
// 実装は複数のリクエストから同時に呼ばれても安全でなければなりません。
type TodoStore interface {
	FindAll(ctx context.Context) ([]*models.Todo, error)
	Create(ctx context.Context, task string) (*models.Todo, error)
	Ping(ctx context.Context) error
}

// TodoRepository は database/sql を使ったTodoStoreの実装です。
// *sql.DB は接続プールなので、各クエリはプールから1本借りて実行されます。
type TodoRepository struct {
	DB     *sql.DB
	driver string
}

// NewTodoRepository は新しいTodoRepositoryを作成します。
// driver は config.DriverPostgres または config.DriverMySQL です。
func NewTodoRepository(db *sql.DB, driver string) *TodoRepository {
	return &TodoRepository{DB: db, driver: driver}
}

// FindAll はすべてのTodoを取得します。行が無い場合は空のスライスを返します。
func (r *TodoRepository) FindAll(ctx context.Context) ([]*models.Todo, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, task FROM todos ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("could not query todos: %w", err)
	}
	defer rows.Close()

	todos := make([]*models.Todo, 0)
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.Task); err != nil {
			return nil, fmt.Errorf("could not scan todo: %w", err)
		}
		todos = append(todos, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}

// Create はTodoを1件挿入し、採番されたIDを持つTodoを返します。
func (r *TodoRepository) Create(ctx context.Context, task string) (*models.Todo, error) {
	var id int64

	switch r.driver {
	case config.DriverMySQL:
		result, err := r.DB.ExecContext(ctx, "INSERT INTO todos (task) VALUES (?)", task)
		if err != nil {
			return nil, fmt.Errorf("could not insert todo: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("could not get last insert ID: %w", err)
		}
	default:
		// PostgreSQL は LastInsertId をサポートしないため RETURNING を使う
		err := r.DB.QueryRowContext(ctx, "INSERT INTO todos (task) VALUES ($1) RETURNING id", task).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("could not insert todo: %w", err)
		}
	}

	return &models.Todo{ID: id, Task: task}, nil
}

// Ping はデータベースへの疎通を確認します。
func (r *TodoRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}
