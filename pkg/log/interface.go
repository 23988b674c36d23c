// Package log provides the structured logging interface used across the
// training pipeline.
//
// The interface is slog-compatible (key/value field pairs, With chaining) and is
// backed by zerolog at runtime. Components obtain a named logger once and attach
// pipeline-specific attributes from attributes.go:
//
//	logger := log.GetLoggerWithName("selection.regression")
//	logger.Info("Candidate evaluated",
//	    log.CandidateKey, "random_forest",
//	    log.MAEKey, 41.2,
//	    log.FoldsRunKey, 4,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. An error value stored under
// ErrAttrKey is rendered with its stack trace; values implementing
// zerolog.LogObjectMarshaler are rendered as nested objects.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	//
	// Example:
	//   logger.Info("Regression candidate selected",
	//       log.CandidateKey, "hist_gradient_boosting",
	//       log.SelectionModeKey, "walk_forward_stability",
	//   )
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	// Non-fatal pipeline conditions (skipped candidates, skipped folds,
	// a failed quality gate in advisory mode) are logged at this level.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	//
	// Example:
	//   logger.Error("Training run aborted",
	//       log.ErrAttrKey, err,
	//       log.StageKey, "supervised",
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
// This interface allows for dependency injection and testing with different
// logger implementations.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific name/component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
