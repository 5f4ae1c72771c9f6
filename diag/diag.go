// Package diag is scopetrace's public logging facade. Embedding
// applications that want to see scopetrace's own operational output
// (output-sink open and write errors, flush-immediate-queue timeouts)
// call SetLogger or SetLevel to configure the shared internal logger
// those messages go through. Config parse warnings and dump directory
// fallbacks are logged through logrus instead and are not affected.
package diag // import "github.com/tracescope/scopetrace/diag"

import (
	"log/slog"

	"github.com/tracescope/scopetrace/internal/diag"
)

// SetLevel configures scopetrace's internal logger to a stderr text
// handler at the given level.
func SetLevel(level slog.Level) {
	diag.SetLevel(level)
}

// SetLogger replaces scopetrace's internal logger with l.
func SetLogger(l slog.Logger) {
	diag.SetLogger(l)
}

// Infof logs a formatted informational message through the shared
// logger SetLogger/SetLevel configure.
func Infof(msg string, args ...any) {
	diag.Infof(msg, args...)
}

// Errorf logs a formatted error message through the shared logger.
func Errorf(msg string, args ...any) {
	diag.Errorf(msg, args...)
}

// Debugf logs a formatted debug message through the shared logger.
func Debugf(msg string, args ...any) {
	diag.Debugf(msg, args...)
}

// Warnf logs a formatted warning through the shared logger.
func Warnf(msg string, args ...any) {
	diag.Warnf(msg, args...)
}
