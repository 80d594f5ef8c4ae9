// Package logging provides the small logging interface used throughout the
// module, and adapters that back it with zap.
//
// Library packages accept a Logger and never construct one. A nil Logger is
// valid everywhere and discards all messages.
//
// Example with zap:
//
//	z, _ := zap.NewDevelopment()
//	c := client.New(t, client.WithLogger(logging.NewZap(z)))
//
// Example with the standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is an optional logging interface. This allows integration with any
// logging framework.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

type nop struct{}

func (nop) Debug(string, ...interface{}) {}
func (nop) Info(string, ...interface{})  {}
func (nop) Error(string, ...interface{}) {}

// Nop is a Logger that discards everything.
var Nop Logger = nop{}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}

// Zap adapts a zap.SugaredLogger to the Logger interface.
type Zap struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps a zap logger.
func NewZap(z *zap.Logger) *Zap {
	return &Zap{sugar: z.Sugar()}
}

// Debug logs a debug message.
func (z *Zap) Debug(msg string, keysAndValues ...interface{}) {
	z.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an info message.
func (z *Zap) Info(msg string, keysAndValues ...interface{}) {
	z.sugar.Infow(msg, keysAndValues...)
}

// Error logs an error message.
func (z *Zap) Error(msg string, keysAndValues ...interface{}) {
	z.sugar.Errorw(msg, keysAndValues...)
}

// With returns a logger that adds the given key-value pairs to every entry.
func (z *Zap) With(keysAndValues ...interface{}) *Zap {
	return &Zap{sugar: z.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries.
func (z *Zap) Sync() error {
	return z.sugar.Sync()
}

// NewConsole builds a human readable zap logger writing to w at the given
// level ("debug", "info", "warn", "error").
func NewConsole(w io.Writer, level string) (*Zap, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:          "timestamp",
		LevelKey:         "level",
		MessageKey:       "message",
		EncodeTime:       zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:      zapcore.LowercaseLevelEncoder,
		ConsoleSeparator: " ",
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		lvl,
	)
	return NewZap(zap.New(core)), nil
}

// NewJSON builds a zap logger with JSON output.
func NewJSON(w io.Writer, level string) (*Zap, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		lvl,
	)
	return NewZap(zap.New(core)), nil
}
