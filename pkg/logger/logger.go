// Package logger provides the shared logging facility for gcgit.
// It wraps a zap sugared logger behind package-level functions so that
// every package logs through the same sink without threading a logger
// value around.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.Mutex
	log *zap.SugaredLogger
)

// Initialize configures the package-level logger. When debug is true the
// logger emits debug-level records with caller information. Safe to call
// more than once; the last call wins.
func Initialize(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	log = build(debug)
}

func build(debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	// Keep stdout clean for command output; diagnostics go to stderr.
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = !debug

	zl, err := cfg.Build()
	if err != nil {
		// The static config above cannot fail to build; fall back to the
		// no-op logger rather than panicking in a CLI tool.
		return zap.NewNop().Sugar()
	}
	return zl.Sugar()
}

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = build(false)
	}
	return log
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { get().Debugf(format, args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { get().Infof(format, args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { get().Warnf(format, args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { get().Errorf(format, args...) }

// Sync flushes any buffered log entries. Called before process exit.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if log != nil {
		_ = log.Sync()
	}
}
