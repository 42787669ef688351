package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger writes colored text in dev and JSON elsewhere. LOG_LEVEL overrides
// the level chosen for env.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env, os.Getenv("LOG_LEVEL"))
}

func newLogger(w io.Writer, env, levelName string) *slog.Logger {
	env = strings.ToLower(strings.TrimSpace(env))
	dev := env == "dev" || env == "local"
	level := slog.LevelInfo
	if dev {
		level = slog.LevelDebug
	}
	if levelName != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(levelName)); err == nil {
			level = parsed
		}
	}

	var handler slog.Handler
	if dev {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			AddSource:  true,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: env != "test",
		})
	}
	return slog.New(handler).With("service", "weekrent")
}
