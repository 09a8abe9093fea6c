package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/go-logr/logr"
)

// Level defines the severity of a log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes Level satisfy fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// Init configures the package-level logger. Safe to call more than once;
// the most recent call wins. Uninitialized, the package logs at LevelInfo
// to os.Stderr so library consumers get reasonable output with zero setup.
func Init(level Level, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})

	mu.Lock()
	logger = slog.New(handler)
	mu.Unlock()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}

func logInternal(level Level, subsystem string, err error, format string, args ...interface{}) {
	l := current()
	if !l.Enabled(context.Background(), level.slogLevel()) {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}

// Debug logs a debug message tagged with subsystem.
func Debug(subsystem string, format string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, format, args...)
}

// Info logs an informational message tagged with subsystem.
func Info(subsystem string, format string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, format, args...)
}

// Warn logs a warning message tagged with subsystem.
func Warn(subsystem string, format string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, format, args...)
}

// Error logs an error message tagged with subsystem.
func Error(subsystem string, err error, format string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, format, args...)
}

// Logr returns a logr.Logger backed by the current slog handler, for
// embedders that standardized on the logr interface.
func Logr() logr.Logger {
	return logr.FromSlogHandler(current().Handler())
}
