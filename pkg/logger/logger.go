// Package logger provides a shared structured logger for the registry.
//
// The package exposes a small set of package-level logging functions backed
// by a single zap logger, so callers never have to thread a logger through
// every constructor. Initialize must be called once at process start;
// before that, logging falls back to a production-configured default.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log = newLogger(false)
)

// newLogger builds the underlying zap logger. Debug mode switches to the
// human-readable console encoder and enables debug-level output; otherwise
// logs are JSON at info level, suitable for log aggregation.
func newLogger(debug bool) *zap.SugaredLogger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	// Logs go to stderr so stdout stays clean for command output.
	cfg.OutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap only fails to build on invalid config, which is static here.
		panic(err)
	}
	return l.Sugar()
}

// Initialize configures the shared logger. Safe to call more than once;
// the last call wins.
func Initialize(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(debug)
}

// Sync flushes any buffered log entries. Intended to be deferred from main.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = log.Sync()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
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

// Fatalf logs a formatted message at fatal level and exits the process.
func Fatalf(format string, args ...any) { get().Fatalf(format, args...) }

// Debug logs a message with optional key/value pairs at debug level.
func Debug(msg string, keysAndValues ...any) { get().Debugw(msg, keysAndValues...) }

// Info logs a message with optional key/value pairs at info level.
func Info(msg string, keysAndValues ...any) { get().Infow(msg, keysAndValues...) }

// Warn logs a message with optional key/value pairs at warn level.
func Warn(msg string, keysAndValues ...any) { get().Warnw(msg, keysAndValues...) }

// Error logs a message with optional key/value pairs at error level.
func Error(msg string, keysAndValues ...any) { get().Errorw(msg, keysAndValues...) }
