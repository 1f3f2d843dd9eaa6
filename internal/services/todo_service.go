package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-todos-quickstart/backend/internal/models"
	"go-todos-quickstart/backend/internal/repositories"
)

// ErrEmptyTask は task が空の場合に返されます。
var ErrEmptyTask = errors.New("task must not be empty")

// TodoService はTodo関連のビジネスロジックを扱います。
type TodoService struct {
	todoRepo repositories.TodoStore
}

// NewTodoService は新しいTodoServiceを作成します。
func NewTodoService(todoRepo repositories.TodoStore) *TodoService {
	return &TodoService{todoRepo: todoRepo}
}

// CreateTodo は新しいTodoを作成します。
func (s *TodoService) CreateTodo(ctx context.Context, req models.CreateTodoRequest) (*models.Todo, error) {
	if req.Task == "" {
		return nil, ErrEmptyTask
	}
	todo, err := s.todoRepo.Create(ctx, req.Task)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "todo created", slog.Int64("id", todo.ID))
	return todo, nil
}

// GetTodos はすべてのTodoを取得します。結果が nil になることはありません。
func (s *TodoService) GetTodos(ctx context.Context) ([]*models.Todo, error) {
	todos, err := s.todoRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []*models.Todo{}
	}
	return todos, nil
}

// CheckHealth は保存先に到達できるかを確認します。
func (s *TodoService) CheckHealth(ctx context.Context) error {
	if err := s.todoRepo.Ping(ctx); err != nil {
		return fmt.Errorf("todo store unavailable: %w", err)
	}
	return nil
}
