// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the caretaker logger: leveled, key-value
// structured output with optional syslog forwarding.
package logging

import (
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the caretaker logger. Call sites use the key-value form:
//
//	logger.Info("backup complete", "path", dst, "bytes", n)
type Logger struct {
	l *charmlog.Logger
}

// Config controls logger construction.
type Config struct {
	Level  string `yaml:"level"`
	Syslog SyslogConfig `yaml:"syslog"`
}

// New creates a logger writing to w.
func New(w io.Writer, cfg Config) *Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		Level:           parseLevel(cfg.Level),
	})
	return &Logger{l: l}
}

// Default returns an info-level logger on stderr.
func Default() *Logger {
	return New(os.Stderr, Config{Level: "info"})
}

// WithSyslog returns a logger that tees output to a syslog writer.
// The syslog writer failing to connect is not fatal; the local logger
// is returned unchanged.
func WithSyslog(base io.Writer, cfg Config) *Logger {
	if !cfg.Syslog.Enabled {
		return New(base, cfg)
	}
	sw, err := NewSyslogWriter(cfg.Syslog)
	if err != nil {
		l := New(base, cfg)
		l.Warn("Syslog forwarding disabled", "error", err)
		return l
	}
	return New(io.MultiWriter(base, sw), cfg)
}

func parseLevel(s string) charmlog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// With returns a logger with the given key-value pairs attached to
// every record.
func (lg *Logger) With(keyvals ...any) *Logger {
	return &Logger{l: lg.l.With(keyvals...)}
}

// Debug logs at debug level.
func (lg *Logger) Debug(msg string, keyvals ...any) { lg.l.Debug(msg, keyvals...) }

// Info logs at info level.
func (lg *Logger) Info(msg string, keyvals ...any) { lg.l.Info(msg, keyvals...) }

// Warn logs at warn level.
func (lg *Logger) Warn(msg string, keyvals ...any) { lg.l.Warn(msg, keyvals...) }

// Error logs at error level.
func (lg *Logger) Error(msg string, keyvals ...any) { lg.l.Error(msg, keyvals...) }
