// Package logging owns the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pagedtable/config"
)

// Field keys attached to every component entry.
const (
	SessionKey   = "session"
	ComponentKey = "component"
)

var (
	standardLogger *logrus.Logger
	session        string
	once           sync.Once
)

// StandardLogger returns the singleton logger instance
func StandardLogger() *logrus.Logger {
	once.Do(func() {
		standardLogger = logrus.New()
		standardLogger.SetFormatter(&logrus.TextFormatter{})
		session = uuid.NewString()
	})
	return standardLogger
}

// Session identifies this process in log output.
func Session() string {
	StandardLogger()
	return session
}

// Init configures the standard logger. The returned func closes the log
// file, if any.
func Init(c *config.Logger) (func(), error) {
	return Configure(StandardLogger(), c)
}

// Configure applies c to l.
func Configure(l *logrus.Logger, c *config.Logger) (func(), error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("logger.level: %w", err)
	}
	l.SetLevel(level)

	switch c.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var closer io.Closer
	switch c.Output {
	case "stdout":
		l.SetOutput(os.Stdout)
	case "file":
		if c.OutputFile == "" {
			return nil, fmt.Errorf("logger.output_file is required when logger.output is file")
		}
		if err := os.MkdirAll(filepath.Dir(c.OutputFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(c.OutputFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return nil, err
		}
		l.SetOutput(f)
		closer = f
	default:
		l.SetOutput(os.Stderr)
	}

	return func() {
		if closer != nil {
			_ = closer.Close()
		}
	}, nil
}

// Component returns an entry tagged with the session and component name.
func Component(name string) *logrus.Entry {
	return StandardLogger().WithFields(logrus.Fields{
		SessionKey:   Session(),
		ComponentKey: name,
	})
}
