// Package logging provides the Logger interface used throughout the lobby
// core, backed by zap with optional file rotation via lumberjack.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the minimal logging surface every component depends on:
// Debugf/Infof/Warnf/Errorf, each taking a printf-style format and args.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	// With returns a child logger with an extra prefix, e.g. per-lobby or
	// per-floor scoping ("lobby=0001000A", "floor=03").
	With(prefix string) Logger
}

type zapLogger struct {
	l      *zap.SugaredLogger
	prefix string
}

// Config controls where logs are written and at what level.
type Config struct {
	// Filename, when non-empty, routes logs through a rotating file
	// (lumberjack). Empty means stderr only.
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Debug      bool
}

// New builds the root Logger for the process.
func New(cfg Config) (Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)

	var ws zapcore.WriteSyncer
	if cfg.Filename != "" {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
	} else {
		ws = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(encoder, ws, level)
	zl := zap.New(core)

	return &zapLogger{l: zl.Sugar()}, nil
}

func (z *zapLogger) Debugf(format string, args ...interface{}) {
	z.l.Debugf(z.withPrefix(format), args...)
}

func (z *zapLogger) Infof(format string, args ...interface{}) {
	z.l.Infof(z.withPrefix(format), args...)
}

func (z *zapLogger) Warnf(format string, args ...interface{}) {
	z.l.Warnf(z.withPrefix(format), args...)
}

func (z *zapLogger) Errorf(format string, args ...interface{}) {
	z.l.Errorf(z.withPrefix(format), args...)
}

func (z *zapLogger) With(prefix string) Logger {
	if z.prefix != "" {
		prefix = z.prefix + ":" + prefix
	}
	return &zapLogger{l: z.l, prefix: prefix}
}

func (z *zapLogger) withPrefix(format string) string {
	if z.prefix == "" {
		return format
	}
	return fmt.Sprintf("[%s] %s", z.prefix, format)
}
