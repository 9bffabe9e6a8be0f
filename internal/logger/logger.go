// Package logger configures the process-wide logrus logger and hands out
// component-scoped entries.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

// New builds a logger writing to out. Production uses JSON, anything else text.
func New(out io.Writer, level string, production bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	if production {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Init builds the stdout logger and installs it as the logrus standard logger.
func Init(level string, production bool) *logrus.Logger {
	l := New(os.Stdout, level, production)
	logrus.SetOutput(l.Out)
	logrus.SetFormatter(l.Formatter)
	logrus.SetLevel(l.Level)
	return l
}

// Component returns an entry tagged with the component name.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}

// Discard returns an entry that drops everything; handy in tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// Gorm routes gorm's logger through logrus, only reporting slow queries and errors.
func Gorm(entry *logrus.Entry) gormlogger.Interface {
	return gormlogger.New(entry, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
