package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new slog.Logger with log rotation support
func NewLogger(cfg *Config) *slog.Logger {
	logDir := cfg.Logging.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		// Fallback to stderr if directory creation fails
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	// Setup lumberjack logger for file rotation
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "app.log"),
		MaxSize:    10, // Megabytes
		MaxBackups: 3,
		MaxAge:     28, // Days
		Compress:   true,
	}

	// Multi-writer: Log to both file and stdout
	writer := io.MultiWriter(os.Stdout, fileLogger)

	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: ParseLevel(cfg.Logging.Level)}))
}

// ParseLevel maps a config level name to a slog level (default info).
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RunLogName returns the per-run log file name for a start time.
func RunLogName(start time.Time) string {
	return start.Format("20060102_150405") + ".log"
}

// NewRunLogger creates a text logger writing to <dir>/YYYYMMDD_HHMMSS.log.
// The returned closer must be called when the run finishes.
func NewRunLogger(dir string, start time.Time, level slog.Level) (*slog.Logger, string, io.Closer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", nil, err
	}

	path := filepath.Join(dir, RunLogName(start))
	fileLogger := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // Megabytes
		MaxBackups: 1,
	}

	return slog.New(slog.NewTextHandler(fileLogger, &slog.HandlerOptions{Level: level})), path, fileLogger, nil
}
