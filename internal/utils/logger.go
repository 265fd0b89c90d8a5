package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogOptions controls how NewLogger builds the process logger.
type LogOptions struct {
	Level   string // debug, info, warn, error
	File    string // optional; appended to alongside stderr
	Console bool   // human readable encoding instead of JSON
}

// NewLogger creates a new zap logger from opts.
func NewLogger(opts LogOptions) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Console {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	if opts.File != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.File)
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, opts.File)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ParseLevel parses a level name; empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}
