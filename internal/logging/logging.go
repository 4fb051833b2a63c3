package logging

import (
	"fmt"
	"log"
	"strings"

	"github.com/VULUxOMID/GoldGames/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger, installs it as the zap global and returns a cleanup that flushes it.
func New(cfg models.LogConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			log.Printf("Failed to sync logger: %v\n", err)
		}
	}

	return logger, cleanup, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stderr: invalid argument")
}
