// Package config は環境変数からアプリケーション設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// サポートするデータベースドライバー
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// DB はデータベース接続の設定です。
type DB struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// Config はサーバー全体の設定です。
type Config struct {
	DB DB

	Port            int
	LogLevel        slog.Level
	AllowOrigins    []string
	RateLimit       float64 // requests per second
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// Default はデフォルト値で埋めたConfigを返します。
func Default() *Config {
	return &Config{
		DB: DB{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			Name:            "todos",
			User:            "postgres",
			Password:        "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  5 * time.Second,
		},
		Port:            8080,
		LogLevel:        slog.LevelInfo,
		AllowOrigins:    []string{"http://localhost:3000"},
		RateLimit:       100,
		RateLimitBurst:  200,
		ShutdownTimeout: 30 * time.Second,
	}
}

// LoadEnvFile は .env ファイルを読み込みます。ファイルが存在しない場合は何もしません。
// すでに設定されている環境変数は上書きされません。
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load は環境変数からConfigを構築します。
// 不正な値はデフォルト値のまま残し、まとめてエラーとして返します。
func Load() (*Config, error) {
	cfg := Default()
	p := &parser{}

	cfg.DB.Driver = strings.ToLower(p.getString("DB_DRIVER", cfg.DB.Driver))
	cfg.DB.Host = p.getString("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = p.getInt("DB_PORT", cfg.DB.Port, 1)
	cfg.DB.Name = p.getString("DB_NAME", cfg.DB.Name)
	cfg.DB.User = p.getString("DB_USER", cfg.DB.User)
	cfg.DB.Password = p.getString("DB_PASS", cfg.DB.Password)
	cfg.DB.SSLMode = p.getString("DB_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.MaxOpenConns = p.getInt("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns, 0)
	cfg.DB.MaxIdleConns = p.getInt("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns, 0)
	cfg.DB.ConnMaxLifetime = p.getDuration("DB_CONN_MAX_LIFETIME", cfg.DB.ConnMaxLifetime)
	cfg.DB.ConnectTimeout = p.getDuration("DB_CONNECT_TIMEOUT", cfg.DB.ConnectTimeout)

	cfg.Port = p.getInt("PORT", cfg.Port, 0)
	cfg.RateLimit = p.getFloat("RATE_LIMIT", cfg.RateLimit)
	// burst が0のリミッターはすべてのリクエストを拒否する
	cfg.RateLimitBurst = p.getInt("RATE_LIMIT_BURST", cfg.RateLimitBurst, 1)
	cfg.ShutdownTimeout = p.getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := ParseLogLevel(v)
		if err != nil {
			p.errs = append(p.errs, err)
		} else {
			cfg.LogLevel = level
		}
	}

	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		errsBefore := len(p.errs)
		var origins []string
		for _, o := range strings.Split(v, ",") {
			o = strings.TrimSpace(o)
			if o == "" {
				continue
			}
			if !validOrigin(o) {
				p.errs = append(p.errs, fmt.Errorf("CORS_ALLOW_ORIGINS: invalid origin %q", o))
				continue
			}
			origins = append(origins, o)
		}
		if len(origins) > 0 && len(p.errs) == errsBefore {
			cfg.AllowOrigins = origins
		}
	}

	switch cfg.DB.Driver {
	case DriverPostgres, DriverMySQL, DriverMemory:
	default:
		p.errs = append(p.errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DB.Driver))
	}

	return cfg, errors.Join(p.errs...)
}

// ParseLogLevel は debug / info / warn / error を slog.Level に変換します。
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: invalid level %q", s)
	}
	return level, nil
}

// validOrigin は gin-contrib/cors が受け付けるオリジンかを判定します。
// スキームの無い値を渡すと cors.New が panic します。
func validOrigin(o string) bool {
	if strings.Contains(o, "*") {
		return true
	}
	return strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://")
}

// Addr はHTTPサーバーの待ち受けアドレスを返します。
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type parser struct {
	errs []error
}

func (p *parser) getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) getInt(key string, def, minimum int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < minimum {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (p *parser) getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return def
	}
	return f
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}
