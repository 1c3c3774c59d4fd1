// Package logging is the process-wide logger shared by the wglink packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the logging level
type Level logrus.Level

// Logging levels
const (
	DebugLevel Level = Level(logrus.DebugLevel)
	InfoLevel  Level = Level(logrus.InfoLevel)
	WarnLevel  Level = Level(logrus.WarnLevel)
	ErrorLevel Level = Level(logrus.ErrorLevel)
)

// Fields is an alias so callers don't need to import logrus themselves.
type Fields = logrus.Fields

// Entry is a log entry carrying fields.
type Entry = logrus.Entry

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
}

// ParseLevel converts a level name such as "debug" or "warn" into a Level.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return InfoLevel, nil
	}

	l, err := logrus.ParseLevel(strings.ToLower(s))
	if err != nil {
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return Level(l), nil
}

// SetLevel sets the logging level
func SetLevel(level Level) {
	logger.SetLevel(logrus.Level(level))
}

// SetOutput sets the log output
func SetOutput(output io.Writer) {
	logger.SetOutput(output)
}

// EnableFileLogging mirrors all log output to a rotated file at path.
func EnableFileLogging(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rotate := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	logger.SetOutput(io.MultiWriter(os.Stderr, rotate))
	return nil
}

// WithFields creates a new log entry with fields
func WithFields(fields Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

// Debugf logs a debug message
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Infof logs an info message
func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

// Warnf logs a warning message
func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Errorf logs an error message
func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}
