package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"go-todos-quickstart/backend/internal/config"
	"go-todos-quickstart/backend/internal/database"
	"go-todos-quickstart/backend/internal/logging"
	"go-todos-quickstart/backend/internal/repositories"
	"go-todos-quickstart/backend/internal/routes"
	"go-todos-quickstart/backend/internal/server"
)

const name = "todos-api"

// overridden during build with ldflags
var version = "dev"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "HTTP API for a todos list backed by PostgreSQL or MySQL",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file to load before reading the environment (missing file is ignored)",
				Value: ".env",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP port to listen on (overrides PORT)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides LOG_LEVEL)",
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: serveAction,
			},
			{
				Name:   "migrate",
				Usage:  "Create the todos table if it does not exist, then exit",
				Action: migrateAction,
			},
		},
	}
}

// loadConfig は .env → 環境変数 → フラグの順に設定を解決し、ロガーを初期化します。
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if err := config.LoadEnvFile(cmd.String("env-file")); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("log-level") {
		level, err := config.ParseLogLevel(cmd.String("log-level"))
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}

	logging.SetDefault(cfg.LogLevel, name, version)
	return cfg, nil
}

// openStore は DB_DRIVER に応じたTodoStoreを用意し、テーブルを作成します。
// 返されるクリーンアップ関数は常に nil ではありません。
func openStore(ctx context.Context, cfg *config.Config) (repositories.TodoStore, func(), error) {
	if cfg.DB.Driver == config.DriverMemory {
		slog.Warn("using in-memory todo store; data is lost on exit")
		return repositories.NewMemoryTodoRepository(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return nil, func() {}, err
	}
	if err := database.EnsureSchema(ctx, db, cfg.DB.Driver); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	return repositories.NewTodoRepository(db, cfg.DB.Driver), func() { db.Close() }, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(store, routes.Options{
		AllowOrigins:   cfg.AllowOrigins,
		RateLimit:      rate.Limit(cfg.RateLimit),
		RateLimitBurst: cfg.RateLimitBurst,
	})

	slog.Info("starting server",
		slog.String("version", version),
		slog.String("address", cfg.Addr()),
		slog.String("driver", cfg.DB.Driver),
		slog.Float64("rateLimit", cfg.RateLimit),
		slog.Int("rateLimitBurst", cfg.RateLimitBurst),
		slog.Duration("shutdownTimeout", cfg.ShutdownTimeout),
	)
	return server.New(cfg.Addr(), router, cfg.ShutdownTimeout).Run(ctx)
}

func migrateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	_, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	closeStore()

	slog.Info("todos table is ready", slog.String("driver", cfg.DB.Driver))
	return nil
}
