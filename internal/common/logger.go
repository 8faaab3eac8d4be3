// logger.go - Process-wide structured logger

package common

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu   sync.RWMutex
	baseLogger = zap.NewNop().Sugar()
)

// InitLogger builds the process logger. format is "json" (default) or "console".
func InitLogger(level, format string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	SetLogger(l.Sugar())
	return nil
}

// SetLogger replaces the process logger (tests use zaptest/observer loggers)
func SetLogger(l *zap.SugaredLogger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	baseLogger = l
}

// Logger returns the process logger; a no-op logger until InitLogger runs.
func Logger() *zap.SugaredLogger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return baseLogger
}

// SyncLogger flushes buffered entries
func SyncLogger() {
	_ = Logger().Sync()
}
