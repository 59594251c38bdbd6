// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// All diagnostic output of the detector goes through this package. Console
// output is human-readable text written to stderr; stdout is reserved for the
// single JSON result line. An optional log file receives the same records as
// JSON for machine parsing.
//
// # Quick Start
//
//	cfg := &logger.LoggingConfig{
//	    DefaultLevel: "error",
//	    Console: &logger.ConsoleOutput{Enabled: true, Level: "error"},
//	}
//
//	centralLogger, err := logger.NewCentralLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer centralLogger.Close()
//	logger.SetGlobal(centralLogger)
//
//	log := centralLogger.Module("detector")
//	log.Debug("model loaded",
//	    logger.String("backend", "tflite"),
//	    logger.Duration("elapsed", time.Since(start)))
//
// # Module Scoping
//
// Module loggers nest with a dot separator:
//
//	log := centralLogger.Module("detector").Module("tflite")
//	log.Debug("interpreter ready") // module="detector.tflite"
//
// # Testing
//
// Use a buffer logger to inspect output:
//
//	buf := &bytes.Buffer{}
//	testLogger := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)
package logger

import (
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field is one key/value pair attached to a log record. Keys are interned.
type Field struct {
	Key   string
	Value any
}

func internKey(key string) string {
	return unique.Make(key).Value()
}

var (
	errorKey  = internKey("error")
	moduleKey = internKey("module")
)

// Logger is a module-scoped structured logger. Packages receive it through
// options or fetch their own with GetLogger.
type Logger interface {
	// Module returns a child logger; names nest as parent.child
	Module(name string) Logger

	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every record
	With(fields ...Field) Logger
}

// String creates a string field for structured logging.
//
// Example:
//
//	log.Debug("image loaded",
//	    logger.String("format", "jpeg"),
//	    logger.String("interpolation", "nearest"))
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field for structured logging.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float32 creates a 32-bit float field. Use it for confidence scores.
func Float32(key string, value float32) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field for structured logging.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field for structured logging.
//
// The field key is always "error". If err is nil, the value will be nil.
//
// Example:
//
//	if err := det.Close(); err != nil {
//	    log.Warn("failed to release model", logger.Error(err))
//	}
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field, rendered as a human-readable string ("1.5s", "200ms").
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Ints creates a field holding an int slice, typically a tensor shape.
func Ints(key string, value []int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with any value for structured logging.
//
// Prefer the type-specific constructors for simple types.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
