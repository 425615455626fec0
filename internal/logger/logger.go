// Package logger provides the driver's structured logger: an slog.Logger
// backed by either a JSON or text handler, with optional file rotation.
//
// Grounded on gcsfuse's internal/logger (internal/logger/logger_test.go):
// a package-level default logger, severity levels spanning
// trace/debug/info/warning/error, and a format switch between JSON and
// text handlers.
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity mirrors cfg's LogSeverity values, translated to slog levels.
// TRACE has no slog equivalent; it is mapped one level below Debug.
type Severity string

const (
	Trace   Severity = "TRACE"
	Debug   Severity = "DEBUG"
	Info    Severity = "INFO"
	Warning Severity = "WARNING"
	Error   Severity = "ERROR"
	Off     Severity = "OFF"
)

const levelTrace = slog.Level(-8)

func (s Severity) level() slog.Level {
	switch s {
	case Trace:
		return levelTrace
	case Debug:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Warning:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	case Off:
		return slog.Level(1 << 20)
	default:
		return slog.LevelInfo
	}
}

// Config configures the logger constructed by New.
type Config struct {
	Severity Severity
	JSON     bool
	// Rotating file destination. When Filename is empty, logs go to
	// os.Stderr instead of a rotated file.
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds an slog.Logger per cfg. The rotation is handled by
// lumberjack.Logger acting as the handler's io.Writer, the same role it
// plays wherever gcsfuse wires rotation into its own logger.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.Filename != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}

	opts := &slog.HandlerOptions{Level: cfg.Severity.level()}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
