// Package logging provides the leveled logger used across the store packages.
//
// The Logger interface is deliberately small so host applications can plug in
// their own logging; the default implementation is backed by zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the minimal leveled logging contract the store depends on.
// Implementations must be safe for concurrent use.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// zeroLogger adapts a zerolog.Logger to the Logger interface.
type zeroLogger struct {
	logger zerolog.Logger
}

// New creates a Logger that writes structured JSON lines to w.
func New(w io.Writer) Logger {
	return &zeroLogger{
		logger: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// NewConsole creates a Logger that writes human-readable output to stderr.
func NewConsole() Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return &zeroLogger{
		logger: zerolog.New(writer).With().Timestamp().Logger(),
	}
}

// WithLevel returns a copy of the logger that drops entries below level.
// Recognized levels: "debug", "info", "warn", "error".
func WithLevel(l Logger, level string) Logger {
	zl, ok := l.(*zeroLogger)
	if !ok {
		return l
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return l
	}

	return &zeroLogger{logger: zl.logger.Level(parsed)}
}

func (l *zeroLogger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *zeroLogger) Info(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

func (l *zeroLogger) Warn(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *zeroLogger) Error(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

// nopLogger discards all log output.
type nopLogger struct{}

// Nop returns a Logger that discards everything. It is the default for
// stores constructed without an explicit logger.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
