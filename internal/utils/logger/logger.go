package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.SugaredLogger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the process-wide logger at the given level ("debug", "info", "warn", "error").
func Init(levelName string) (*zap.SugaredLogger, error) {
	if err := SetLogLevel(levelName); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	global = z.Sugar()
	zap.ReplaceGlobals(z)
	return global, nil
}

// SetLogLevel changes the level of the running logger.
func SetLogLevel(levelName string) error {
	if levelName == "" {
		return nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(levelName))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	level.SetLevel(l)
	return nil
}

// Level returns the current log level name.
func Level() string {
	return level.Level().String()
}

// With returns the global logger decorated with the given key/value pairs
// and installs it as the global logger.
func With(args ...interface{}) *zap.SugaredLogger {
	global = Logger().With(args...)
	return global
}

// Logger returns the process-wide logger. It is never nil.
func Logger() *zap.SugaredLogger {
	if global == nil {
		// In case someone logs before Init, return a no-op logger.
		return zap.NewNop().Sugar()
	}
	return global
}
