// Package routesはroutingを行います。
package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"go-todos-quickstart/backend/internal/handlers"
	"go-todos-quickstart/backend/internal/repositories"
	"go-todos-quickstart/backend/internal/services"
)

// Options はルーターの挙動を調整する設定です。
type Options struct {
	AllowOrigins   []string
	RateLimit      rate.Limit // requests per second
	RateLimitBurst int
}

// DefaultOptions はローカル開発向けのOptionsを返します。
func DefaultOptions() Options {
	return Options{
		AllowOrigins:   []string{"http://localhost:3000"},
		RateLimit:      100,
		RateLimitBurst: 200,
	}
}

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(store repositories.TodoStore, opts Options) *gin.Engine {
	r := gin.New()

	// CORS対策
	config := cors.DefaultConfig()
	config.AllowOrigins = opts.AllowOrigins
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-Id"}
	config.ExposeHeaders = []string{"X-Request-Id"}

	// panic したリクエストもアクセスログに残すため Logging は Recovery の外側に置く
	r.Use(
		MetricsMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(),
		RecoveryMiddleware(),
		cors.New(config),
	)

	// サービス
	todoService := services.NewTodoService(store)

	// ハンドラー
	todoHandler := handlers.NewTodoHandler(todoService)
	healthHandler := handlers.NewHealthHandler(todoService)

	// システム系 (レート制限なし)
	r.GET("/", handlers.BannerHandler)
	r.GET("/healthz", healthHandler.LivenessHandler)
	r.GET("/readyz", healthHandler.ReadinessHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	api.Use(RateLimitMiddleware(rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst)))
	{
		api.GET("/todos", todoHandler.GetTodosHandler)
		api.POST("/todos", todoHandler.CreateTodoHandler)
	}

	return r
}
