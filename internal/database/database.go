// Package database はデータベース接続プールの初期化とスキーマ作成を行います。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib" // "pgx" ドライバーを登録

	"go-todos-quickstart/backend/internal/config"
)

// ApplicationName は PostgreSQL の application_name に設定される値です。
const ApplicationName = "todos-api"

// ErrUnsupportedDriver はSQLドライバーとして扱えない DB_DRIVER の場合に返されます。
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// createTableSQL は方言ごとの todos テーブル定義です。
var createTableSQL = map[string]string{
	config.DriverPostgres: `
		CREATE TABLE IF NOT EXISTS todos (
			id SERIAL PRIMARY KEY,
			task TEXT NOT NULL
		)`,
	config.DriverMySQL: `
		CREATE TABLE IF NOT EXISTS todos (
			id INT AUTO_INCREMENT PRIMARY KEY,
			task TEXT NOT NULL
		)`,
}

// DSN は設定から database/sql のドライバー名と接続文字列を組み立てます。
func DSN(cfg config.DB) (driverName string, dsn string, err error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	switch cfg.Driver {
	case config.DriverPostgres:
		q := url.Values{}
		if cfg.SSLMode != "" {
			q.Set("sslmode", cfg.SSLMode)
		}
		if cfg.ConnectTimeout > 0 {
			secs := int(cfg.ConnectTimeout / time.Second)
			if secs < 1 {
				secs = 1
			}
			q.Set("connect_timeout", strconv.Itoa(secs))
		}
		q.Set("application_name", ApplicationName)
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     addr,
			Path:     "/" + cfg.Name,
			RawQuery: q.Encode(),
		}
		return "pgx", u.String(), nil

	case config.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = addr
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Timeout = cfg.ConnectTimeout
		return "mysql", mc.FormatDSN(), nil
	}

	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
}

// Open は接続プールを作成し、疎通確認 (Ping) まで行います。
// リクエストごとにプールから接続を借り、処理後に返却します。
func Open(ctx context.Context, cfg config.DB) (*sql.DB, error) {
	driverName, dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s@%s:%d/%s: %w",
			cfg.User, cfg.Host, cfg.Port, cfg.Name, err)
	}

	slog.Info("connected to database",
		slog.String("driver", cfg.Driver),
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("name", cfg.Name),
		slog.Int("maxOpenConns", cfg.MaxOpenConns),
	)
	return db, nil
}

// EnsureSchema は todos テーブルが存在しなければ作成します。何度実行しても安全です。
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	ddl, ok := createTableSQL[driver]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create todos table: %w", err)
	}
	slog.Debug("todos table ensured", slog.String("driver", driver))
	return nil
}
