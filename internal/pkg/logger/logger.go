// Package logger wraps zap with the child-logger helpers used across
// millboard: per component, per acting user, per order and per request.
package logger

import (
	"fmt"
	"os"

	"github.com/ak/millboard/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap.Logger that remembers which component it belongs to
type Logger struct {
	*zap.Logger
	component string
}

// New builds a logger from the logging section of the config. An unknown
// level falls back to info.
func New(cfg config.LoggingConfig) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level = zapcore.InfoLevel
		}
	}

	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)
	return &Logger{
		Logger: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
	}, nil
}

func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		ec.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// openSink maps "stdout", "stderr" or a file path to a write syncer
func openSink(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

// SetGlobal makes l the logger behind zap.L() and zap.S()
func SetGlobal(l *Logger) {
	zap.ReplaceGlobals(l.Logger)
}

// Nop discards everything
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func (l *Logger) child(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), component: l.component}
}

// WithComponent names the subsystem doing the logging
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(zap.String("component", component)),
		component: component,
	}
}

// WithUser tags entries with the acting user
func (l *Logger) WithUser(userID, username string) *Logger {
	return l.child(zap.String("user_id", userID), zap.String("username", username))
}

// WithOrder tags entries with the human readable order id
func (l *Logger) WithOrder(orderID string) *Logger {
	return l.child(zap.String("order_id", orderID))
}

// WithRequest tags entries with the request id set by the RequestID middleware
func (l *Logger) WithRequest(requestID string) *Logger {
	if requestID == "" {
		return l
	}
	return l.child(zap.String("request_id", requestID))
}
