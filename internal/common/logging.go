// Package common provides shared utilities for marketstate
package common

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps log.Logger to provide a consistent interface
type Logger struct {
	log.Logger
}

// parseLevel maps a configured level name onto a log.Level.
// The second return is false for "disabled".
func parseLevel(level string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel, true
	case "debug":
		return log.DebugLevel, true
	case "info", "":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	case "disabled", "off", "none":
		return log.PanicLevel, false
	default:
		return log.InfoLevel, true
	}
}

// NewLogger creates a console logger on stderr with the specified level.
// Stdout is reserved for the result document.
func NewLogger(level string) *Logger {
	return NewLoggerFromConfig(LoggingConfig{Level: level, Format: "console", Outputs: []string{"console"}})
}

// NewLoggerFromConfig builds a logger from the [logging] section.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	lvl, enabled := parseLevel(cfg.Level)
	if !enabled {
		return NewSilentLogger()
	}

	var writers log.MultiEntryWriter
	for _, out := range cfg.Outputs {
		switch strings.ToLower(out) {
		case "console", "stderr":
			writers = append(writers, consoleWriter(cfg.Format, os.Stderr))
		case "file":
			if cfg.FilePath == "" {
				continue
			}
			writers = append(writers, &log.IOWriter{Writer: &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				Compress:   true,
			}})
		}
	}
	if len(writers) == 0 {
		writers = append(writers, consoleWriter(cfg.Format, os.Stderr))
	}

	return &Logger{Logger: log.Logger{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		Writer:     &writers,
	}}
}

func consoleWriter(format string, w io.Writer) log.Writer {
	if strings.ToLower(format) == "json" {
		return &log.IOWriter{Writer: w}
	}
	return &log.ConsoleWriter{Writer: w}
}

// NewLoggerWithOutput creates a JSON logger writing to a specific output
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	lvl, enabled := parseLevel(level)
	if !enabled {
		return NewSilentLogger()
	}
	return &Logger{Logger: log.Logger{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		Writer:     &log.IOWriter{Writer: w},
	}}
}

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() *Logger {
	return &Logger{Logger: log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}}
}
