// Package logging builds the zap logger shared by the client and dev server.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger at level writing to path. An empty path or "-"
// writes to stderr. Parent directories are created as needed.
func New(level, path string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	trimmed := strings.TrimSpace(level)
	if trimmed == "" {
		trimmed = "info"
	}
	atomicLevel, err := zap.ParseAtomicLevel(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	output := strings.TrimSpace(path)
	if output == "" || output == "-" {
		output = "stderr"
	} else if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	config := zap.Config{
		Level:             atomicLevel,
		Development:       false,
		DisableStacktrace: true,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
