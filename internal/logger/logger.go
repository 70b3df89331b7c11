// Package logger configures the process-wide logrus instance.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Setup applies the log level and formatter to the global logger.
func Setup(level string) {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warn("Invalid log level, defaulting to info")
		logLevel = logrus.InfoLevel
	}

	logrus.SetLevel(logLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		PadLevelText:    true,
	})
	logrus.SetOutput(os.Stdout)
}

// Component returns a logger entry tagged with a component name.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}
