// Package logging builds the zap loggers shared by the server and the
// terminal shell.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhouzirui/legal-assistant/backend/internal/config"
)

// New builds a logger from cfg. Console format selects zap's development
// encoder; anything else logs JSON.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return build(cfg, nil)
}

// NewFile builds a logger that writes only to path. The terminal shell uses
// it so log lines never land on the screen.
func NewFile(cfg config.LogConfig, path string) (*zap.Logger, error) {
	return build(cfg, []string{path})
}

func build(cfg config.LogConfig, outputs []string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(outputs) > 0 {
		zc.OutputPaths = outputs
		zc.ErrorOutputPaths = outputs
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
