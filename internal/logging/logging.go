// v0
// internal/logging/logging.go
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const defaultPath = "./footfall.log"

type DualLogger struct {
	Logger *slog.Logger
	file   *os.File
}

// New creates a slog logger that writes to stdout and to an append-only file.
// An empty path falls back to FOOTFALL_LOGFILE, then "./footfall.log". When the
// file cannot be opened the logger keeps writing to stdout only.
func New(path, level string) *DualLogger {
	return NewWithConsole(os.Stdout, path, level)
}

// NewWithConsole is New with console output sent to w instead of stdout; a
// nil w keeps only the file.
func NewWithConsole(w io.Writer, path, level string) *DualLogger {
	if path == "" {
		path = os.Getenv("FOOTFALL_LOGFILE")
	}
	if path == "" {
		path = defaultPath
	}

	var writers []io.Writer
	if w != nil {
		writers = append(writers, w)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err == nil {
		writers = append(writers, file)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: ParseLevel(level)})
	dl := &DualLogger{Logger: slog.New(handler), file: file}
	if err != nil {
		dl.Logger.Warn("logfile unavailable, logging to console only", "path", path, "err", err)
	}
	return dl
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps debug/info/warn/error onto slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close releases the log file, if any.
func (d *DualLogger) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	return d.file.Close()
}
