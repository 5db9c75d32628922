// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides structured, leveled logging for all daemon
// components. Loggers carry a component name and accept alternating
// key/value pairs, e.g.:
//
//	logging.WithComponent("qos").Info("Queueing add request", "size", len(policies))
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Level controls which messages are emitted.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a config string into a Level. Unknown strings
// default to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config controls logger construction.
type Config struct {
	Output io.Writer
	Level  Level
	// Console enables human-readable output instead of JSON lines.
	Console bool
}

// DefaultConfig returns the configuration used when a component is
// handed a nil logger.
func DefaultConfig() Config {
	return Config{
		Output:  os.Stderr,
		Level:   LevelInfo,
		Console: false,
	}
}

// Logger is a component-scoped structured logger.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger from the given configuration.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	zl := zerolog.New(out).Level(cfg.Level.zerolog()).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// WithComponent returns a logger scoped to the named component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

// With returns a logger with a permanent key/value attached.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// Debug logs at debug level with alternating key/value pairs.
func (l *Logger) Debug(msg string, kv ...any) { emit(l.zl.Debug(), msg, kv) }

// Info logs at info level with alternating key/value pairs.
func (l *Logger) Info(msg string, kv ...any) { emit(l.zl.Info(), msg, kv) }

// Warn logs at warn level with alternating key/value pairs.
func (l *Logger) Warn(msg string, kv ...any) { emit(l.zl.Warn(), msg, kv) }

// Error logs at error level with alternating key/value pairs.
func (l *Logger) Error(msg string, kv ...any) { emit(l.zl.Error(), msg, kv) }

func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		ev = ev.Interface(key, kv[i+1])
	}
	if len(kv)%2 != 0 {
		ev = ev.Interface("extra", kv[len(kv)-1])
	}
	ev.Msg(msg)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(DefaultConfig())
)

// SetDefault replaces the process-wide default logger used by the
// package-level helpers.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default returns the process-wide default logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// WithComponent returns a component-scoped logger derived from the
// process-wide default.
func WithComponent(name string) *Logger { return Default().WithComponent(name) }

// Debug logs to the default logger.
func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }

// Info logs to the default logger.
func Info(msg string, kv ...any) { Default().Info(msg, kv...) }

// Warn logs to the default logger.
func Warn(msg string, kv ...any) { Default().Warn(msg, kv...) }

// Error logs to the default logger.
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }
