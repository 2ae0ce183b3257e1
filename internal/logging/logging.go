// Package logging builds the application loggers. Logs go to stderr so
// stdout stays free for notebook output (--stdout mode).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates the CLI logger: console encoding on stderr. quiet raises
// the level so nothing prints unless things go wrong.
func New(quiet bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewNop returns a no-op logger.
func NewNop() *zap.Logger { return zap.NewNop() }
