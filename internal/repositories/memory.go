package repositories

import (
	"context"
	"sync"

	"go-todos-quickstart/backend/internal/models"
)

// MemoryTodoRepository はメモリ上にTodoを保持するTodoStoreです。
// DB_DRIVER=memory の時とテストで使います。プロセス終了で内容は消えます。
type MemoryTodoRepository struct {
	mu     sync.RWMutex
	todos  []models.Todo
	nextID int64
}

// NewMemoryTodoRepository は空のMemoryTodoRepositoryを作成します。
func NewMemoryTodoRepository() *MemoryTodoRepository {
	return &MemoryTodoRepository{nextID: 1}
}

// FindAll は登録順にすべてのTodoのコピーを返します。
func (r *MemoryTodoRepository) FindAll(ctx context.Context) ([]*models.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	todos := make([]*models.Todo, 0, len(r.todos))
	for i := range r.todos {
		t := r.todos[i]
		todos = append(todos, &t)
	}
	return todos, nil
}

// Create はTodoを追加します。IDは1から単調増加します。
func (r *MemoryTodoRepository) Create(ctx context.Context, task string) (*models.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t := models.Todo{ID: r.nextID, Task: task}
	r.nextID++
	r.todos = append(r.todos, t)
	return &t, nil
}

// Ping は常に成功します。
func (r *MemoryTodoRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
