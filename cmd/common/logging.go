package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogPath returns the path of the play session log.
func LogPath() string {
	return filepath.Join(CacheDir(), "sceneplay.log")
}

// ParseLevel maps a config value such as "debug" or "WARN" to a slog level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a text logger on w and installs it as the slog default.
func NewLogger(w io.Writer, level slog.Level, attrs ...any) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler).With(attrs...)
	slog.SetDefault(logger)
	return logger
}

// SetupFileLogging sends the default logger to path, appending. Used when the
// terminal belongs to the UI. The returned file must be closed by the caller.
func SetupFileLogging(path string, level slog.Level, attrs ...any) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return NewLogger(logFile, level, attrs...), logFile, nil
}

// VerboseLevel is the stderr level of the one-shot commands: warnings unless
// verbose is set.
func VerboseLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// SetupStderrLogging sends the default logger to stderr.
func SetupStderrLogging(level slog.Level, attrs ...any) *slog.Logger {
	return NewLogger(os.Stderr, level, attrs...)
}
