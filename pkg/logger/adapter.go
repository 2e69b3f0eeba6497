package logger

import (
	"io"

	"github.com/igorsal/commit-bridge/internal/interfaces"
)

// Adapter adapts Logger to interfaces.Logger
type Adapter struct {
	logger *Logger
}

// NewAdapter creates a new logger adapter
func NewAdapter(level, format string) interfaces.Logger {
	return &Adapter{
		logger: New(level, format),
	}
}

// NewAdapterWithWriter creates an adapter writing JSON entries to w
func NewAdapterWithWriter(level string, w io.Writer) interfaces.Logger {
	return &Adapter{
		logger: NewWithWriter(level, "json", w),
	}
}

// NewNop returns a logger that discards everything
func NewNop() interfaces.Logger {
	return NewAdapterWithWriter("disabled", io.Discard)
}

func (a *Adapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, fields...)
}

func (a *Adapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, fields...)
}

func (a *Adapter) Warn(msg string, fields ...interface{}) {
	a.logger.Warn(msg, fields...)
}

func (a *Adapter) Error(msg string, err error, fields ...interface{}) {
	a.logger.Error(msg, err, fields...)
}

// Fatal logs a fatal message and exits
func (a *Adapter) Fatal(msg string, err error, fields ...interface{}) {
	a.logger.Fatal(msg, err, fields...)
}

// With returns a child adapter carrying fields on every entry
func (a *Adapter) With(fields ...interface{}) interfaces.Logger {
	return &Adapter{
		logger: a.logger.With(fields...),
	}
}
