// Package log provides the leveled logging interface shared by the server and client processes.
package log

import (
	"io"
)

// Logger defines a common interface shared by logging engines.
type Logger interface {
	// Debug logs a debug message.
	Debug(format string, v ...interface{})

	// Info logs an informational message.
	Info(format string, v ...interface{})

	// Warn logs a warning message.
	Warn(format string, v ...interface{})

	// Error logs an error message.
	Error(format string, v ...interface{})

	// Level returns the currently configured logging level.
	Level() Level
}

// NewDiscardLogger creates a logger that accepts and drops every message.
func NewDiscardLogger() Logger {
	return NewWriterLogger(io.Discard, Error+1)
}
