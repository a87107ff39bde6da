// Package log provides structured logging utilities for the GOSP staking pool.
// It wraps the standard library's slog package with additional convenience methods.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with additional context and convenience methods
type Logger struct {
	*slog.Logger
	service string
	version string
}

// New creates a new logger with the specified configuration
func New(service, version, level, format string) *Logger {
	var handler slog.Handler

	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	baseLogger := slog.New(handler).With(
		"service", service,
		"version", version,
	)

	return &Logger{
		Logger:  baseLogger,
		service: service,
		version: version,
	}
}

// WithFields returns a logger with additional fields
func (l *Logger) WithFields(fields ...any) *Logger {
	return &Logger{
		Logger:  l.With(fields...),
		service: l.service,
		version: l.version,
	}
}

// WithComponent returns a logger with a component field
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// WithStaker returns a logger with staker-specific fields
func (l *Logger) WithStaker(address string) *Logger {
	return l.WithFields("staker", address)
}

// WithProvider returns a logger with dividend-provider fields
func (l *Logger) WithProvider(address string, index int) *Logger {
	return l.WithFields("provider", address, "entry_index", index)
}

// WithGame returns a logger with game-specific fields
func (l *Logger) WithGame(address string) *Logger {
	return l.WithFields("game", address)
}

// WithRequest returns a logger with randomness-request fields
func (l *Logger) WithRequest(requestID string) *Logger {
	return l.WithFields("request_id", requestID)
}

// WithError returns a logger with error context
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithFields("error", err.Error())
}

// LogDistribution logs a scheduler payout
func (l *Logger) LogDistribution(recipient string, amount string, cursor int) {
	l.Info("distribution executed",
		"recipient", recipient,
		"amount", amount,
		"cursor", cursor,
	)
}

// LogStakeOperation logs a stake or exit operation
func (l *Logger) LogStakeOperation(op, staker, amount string) {
	l.Info("stake operation",
		"operation", op,
		"staker", staker,
		"amount", amount,
	)
}

// LogOracleRequest logs a randomness request issued to the oracle
func (l *Logger) LogOracleRequest(requestID string, height uint64, batched bool) {
	l.Info("oracle request",
		"request_id", requestID,
		"block_height", height,
		"batched", batched,
	)
}
