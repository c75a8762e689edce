package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON logger tagged with the service and environment and
// installs it as the slog default.
func New(service, env, level string) *slog.Logger {
	return newWithWriter(os.Stdout, service, env, level)
}

func newWithWriter(w io.Writer, service, env, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	logger := slog.New(h).With("service", service, "env", env)
	slog.SetDefault(logger)
	return logger
}

func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
