// Package handlers はGinのHTTPハンドラーを提供します。
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-todos-quickstart/backend/internal/services"
)

const readyTimeout = 2 * time.Second

// HealthHandler はヘルスチェック用のハンドラーです。
type HealthHandler struct {
	todoService *services.TodoService
}

// NewHealthHandler は新しいHealthHandlerを作成します。
func NewHealthHandler(todoService *services.TodoService) *HealthHandler {
	return &HealthHandler{todoService: todoService}
}

// LivenessHandler はプロセスが動いていれば常に200を返します。
func (h *HealthHandler) LivenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReadinessHandler はデータベース接続の健全性を確認します。
func (h *HealthHandler) ReadinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.todoService.CheckHealth(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
