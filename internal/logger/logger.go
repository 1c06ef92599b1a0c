package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the logger is built
type Options struct {
	Debug       bool
	Development bool
}

// New builds a JSON production logger, or a console logger when Development is set
func New(opts Options) (*zap.Logger, error) {
	if opts.Development {
		return newDevelopmentLogger(opts.Debug)
	}
	return newProductionLogger(opts.Debug)
}

func level(debug bool) zap.AtomicLevel {
	if debug {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel)
}

func newProductionLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = level(debug)
	config.Encoding = "json"
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.DisableStacktrace = false
	return config.Build()
}

func newDevelopmentLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = level(debug)
	return config.Build()
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Sync flushes buffered entries. Safe to call on a nil logger.
func Sync(l *zap.Logger) error {
	if l == nil {
		return nil
	}
	return l.Sync()
}
