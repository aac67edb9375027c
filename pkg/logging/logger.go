// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging builds the process logger for Adak components.
//
// The package wraps the standard library slog with two conventions the
// rest of the repo relies on:
//
//   - Default: stderr output for CLI compatibility (follows Unix
//     conventions), human-readable text unless JSON is requested.
//   - Optional: file logging with automatic directory creation; files
//     are named {service}_{date}.log and always JSON.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    Service: "adak",
//	})
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: development troubleshooting, verbose output
//   - Info: normal operations (request start/end, state changes)
//   - Warn: recoverable issues (retry attempts, degraded mode)
//   - Error: operation failures (but the process continues)
//
// # Thread Safety
//
// Logger is safe for concurrent use; the underlying slog handlers are
// thread-safe and file closing is guarded by a mutex.
//
// # Security Considerations
//
// This package does NOT automatically redact sensitive data. Callers
// must ensure keys and tokens are not logged.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a level name to a Level, defaulting to Info for
// unknown names.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity emitted.
	Level Level

	// Service names the component; it appears as an attribute on every
	// record and in the log file name.
	Service string

	// LogDir enables file logging when non-empty. Supports ~ expansion.
	// The directory is created if missing.
	LogDir string

	// JSON switches the stderr handler from text to JSON. File output is
	// always JSON.
	JSON bool

	// Quiet suppresses stderr output entirely. Useful when a CLI owns
	// the terminal and logs should only reach the file.
	Quiet bool
}

// Logger wraps an slog.Logger with lifecycle management for the optional
// log file.
type Logger struct {
	slogger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// New builds a Logger from config. Failure to open the log file degrades
// to stderr-only logging rather than failing construction: a CLI that
// cannot write its log file should still run.
func New(config Config) *Logger {
	var handlers []slog.Handler
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	var file *os.File
	if config.LogDir != "" {
		f, err := openLogFile(expandPath(config.LogDir), config.Service)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		} else {
			file = f
			handlers = append(handlers, slog.NewJSONHandler(f, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	slogger := slog.New(handler)
	if config.Service != "" {
		slogger = slogger.With("service", config.Service)
	}
	return &Logger{slogger: slogger, file: file}
}

// Default returns a stderr-only Info-level logger.
func Default() *Logger {
	return New(Config{Level: LevelInfo})
}

func openLogFile(dir, service string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create log dir %s: %w", dir, err)
	}
	if service == "" {
		service = "adak"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}
	return f, nil
}

// Slog exposes the underlying slog.Logger for slog.SetDefault and for
// packages that take *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// With returns a logger carrying additional attributes. Derived loggers
// share the root logger's file; close only the root.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slogger: l.slogger.With(args...)}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) { l.slogger.Debug(msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { l.slogger.Info(msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.slogger.Warn(msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { l.slogger.Error(msg, args...) }

// Close flushes and closes the log file if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// multiHandler fans one record out to every destination handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: out}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: out}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
