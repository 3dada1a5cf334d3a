// Package logging builds the process-wide zap logger and hands out named
// component loggers. Every component logs through its own name so the
// serial console stays greppable per subsystem.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs the root logger. Debug switches the level and keeps the
// development console encoder, which is what you want on a serial line.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

// Component returns a named sugared logger for one subsystem.
func Component(root *zap.Logger, name string) *zap.SugaredLogger {
	return root.Named(name).Sugar()
}

// Nop returns a logger that discards everything; used by tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
