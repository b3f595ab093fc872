package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu            sync.RWMutex
	defaultLogger *logrus.Logger
	defaultOnce   sync.Once
)

// Init configures the package logger. A nil out writes to stderr.
func Init(level string, json bool, out io.Writer) {
	l := newLogger(level, json, out)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func newLogger(level string, json bool, out io.Writer) *logrus.Logger {
	l := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)
	l.SetLevel(parseLevel(level))
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return l
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Get returns the package logger, initializing a warn-level stderr logger on first use.
// Safe for concurrent use.
func Get() *logrus.Logger {
	defaultOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if defaultLogger == nil {
			defaultLogger = newLogger("warn", false, nil)
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func Info(msg string, fields logrus.Fields)  { Get().WithFields(fields).Info(msg) }
func Debug(msg string, fields logrus.Fields) { Get().WithFields(fields).Debug(msg) }
func Warn(msg string, fields logrus.Fields)  { Get().WithFields(fields).Warn(msg) }
func Error(msg string, fields logrus.Fields) { Get().WithFields(fields).Error(msg) }

// With returns an entry carrying the given fields.
func With(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}
