package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-todos-quickstart/backend/internal/models"
	"go-todos-quickstart/backend/internal/services"
)

// Banner は GET / で返す文字列です。
const Banner = "Todos Quickstart"

// TodoHandler はTodo関連のハンドラーを管理します。
type TodoHandler struct {
	todoService *services.TodoService
}

// NewTodoHandler は新しいTodoHandlerを作成します。
func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// BannerHandler はサービス名をプレーンテキストで返します。
func BannerHandler(c *gin.Context) {
	c.String(http.StatusOK, Banner)
}

// CreateTodoHandler は新しいTodoを作成します。
func (h *TodoHandler) CreateTodoHandler(c *gin.Context) {
	var req models.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	createdTodo, err := h.todoService.CreateTodo(c.Request.Context(), req)
	if errors.Is(err, services.ErrEmptyTask) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdTodo)
}

// GetTodosHandler はTodoリストを取得します。
func (h *TodoHandler) GetTodosHandler(c *gin.Context) {
	todos, err := h.todoService.GetTodos(c.Request.Context())
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

// storeError はドライバーが返した元のエラー文をそのまま500で返します。
// ラップされたエラー全体は c.Error に積まれ、アクセスログに出力されます。
func storeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.String(http.StatusInternalServerError, rootCause(err).Error())
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
