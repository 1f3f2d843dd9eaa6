// Package logging は slog ベースの構造化ロガーを提供します。
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New はJSON形式で出力する slog.Logger を作成します。
// debug レベルではソース位置も出力します。
func New(w io.Writer, level slog.Level, service, version string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(h).With(
		slog.String("service", service),
		slog.String("version", version),
	)
}

// SetDefault は New で作成したロガーをデフォルトに設定します。
// 標準の log パッケージの出力も slog に流れるようになります。
func SetDefault(level slog.Level, service, version string) *slog.Logger {
	logger := New(os.Stderr, level, service, version)
	slog.SetDefault(logger)
	return logger
}
