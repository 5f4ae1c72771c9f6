// Package diag holds the process-wide slog logger scopetrace's internal
// packages write to. It is adapted from the teacher's internal/log: a
// swappable *slog.Logger behind an atomic pointer, with printf-style
// wrappers kept for call sites that still build plain strings.
package diag // import "github.com/tracescope/scopetrace/internal/diag"

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

// globalLogger is the logger used by every scopetrace package unless
// overridden via SetLogger. It defaults to a text handler on stderr at
// Info level, same as the teacher's default.
var globalLogger = func() *atomic.Pointer[slog.Logger] {
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	p := new(atomic.Pointer[slog.Logger])
	p.Store(l)
	return p
}()

// SetLogger replaces the global logger.
func SetLogger(l slog.Logger) {
	globalLogger.Store(&l)
}

// SetLevel reconfigures the global logger to a text handler on stderr at
// the given level, discarding any handler installed via SetLogger.
func SetLevel(level slog.Level) {
	SetLogger(*slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func getLogger() *slog.Logger {
	return globalLogger.Load()
}

// Infof logs a formatted informational message.
func Infof(msg string, args ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelInfo) {
		getLogger().Info(fmt.Sprintf(msg, args...))
	}
}

// Info logs an informational message.
func Info(msg string) {
	if getLogger().Enabled(context.Background(), slog.LevelInfo) {
		getLogger().Info(msg)
	}
}

// Errorf logs a formatted error message.
func Errorf(msg string, args ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelError) {
		getLogger().Error(fmt.Sprintf(msg, args...))
	}
}

// Error logs an error.
func Error(err error) {
	if getLogger().Enabled(context.Background(), slog.LevelError) {
		getLogger().Error(err.Error())
	}
}

// Debugf logs a formatted debug message.
func Debugf(msg string, args ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelDebug) {
		getLogger().Debug(fmt.Sprintf(msg, args...))
	}
}

// Debug logs a debug message.
func Debug(msg string) {
	if getLogger().Enabled(context.Background(), slog.LevelDebug) {
		getLogger().Debug(msg)
	}
}

// Warnf logs a formatted warning.
func Warnf(msg string, args ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelWarn) {
		getLogger().Warn(fmt.Sprintf(msg, args...))
	}
}

// Warn logs a warning.
func Warn(msg string) {
	if getLogger().Enabled(context.Background(), slog.LevelWarn) {
		getLogger().Warn(msg)
	}
}
