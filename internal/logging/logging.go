// Package logging owns the process-wide operational logger.
//
// Every component logs through Op() so the encoder, level and output are
// configured exactly once, in main. The level can be changed at runtime
// via SetLevelFromString, which is what the DEBUG config option hooks
// into.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	opLogger atomic.Pointer[zap.Logger]
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	opLogger.Store(zap.NewNop())
}

// Init builds the operational logger. Call once at startup, before any
// component starts logging.
func Init(level string) *zap.Logger {
	SetLevelFromString(level)

	cfg := zap.Config{
		Level:            logLevel,
		Development:      logLevel.Level() == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	opLogger.Store(logger)
	return logger
}

// Op returns the operational logger.
func Op() *zap.Logger {
	return opLogger.Load()
}

// SetLevelFromString sets the log level from a string.
// Valid values: "debug", "info", "warn", "error".
func SetLevelFromString(level string) {
	switch level {
	case "debug", "DEBUG":
		logLevel.SetLevel(zapcore.DebugLevel)
	case "info", "INFO":
		logLevel.SetLevel(zapcore.InfoLevel)
	case "warn", "WARN", "warning", "WARNING":
		logLevel.SetLevel(zapcore.WarnLevel)
	case "error", "ERROR":
		logLevel.SetLevel(zapcore.ErrorLevel)
	}
}
