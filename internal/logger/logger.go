package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. format is "json" (default) or "text".
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	l.SetLevel(ParseLevel(level))
	return l
}

// ParseLevel maps LOG_LEVEL values to logrus levels, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
