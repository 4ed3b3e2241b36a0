package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

// LoggerOptions tunes InitLoggerWith. The zero value matches InitLogger.
type LoggerOptions struct {
	JSON  bool
	Level string
}

func InitLogger() {
	InitLoggerWith(LoggerOptions{})
}

func InitLoggerWith(opts LoggerOptions) {
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()

	InfoLogger.SetOutput(os.Stdout)
	ErrorLogger.SetOutput(os.Stderr)

	if opts.JSON {
		InfoLogger.SetFormatter(&logrus.JSONFormatter{})
		ErrorLogger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		InfoLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		ErrorLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level := logrus.InfoLevel
	if opts.Level != "" {
		if parsed, err := logrus.ParseLevel(opts.Level); err == nil {
			level = parsed
		}
	}
	InfoLogger.SetLevel(level)
	ErrorLogger.SetLevel(logrus.ErrorLevel)
}

// Info returns InfoLogger, initialising the loggers on first use so that
// packages can log from tests that never called InitLogger.
func Info() *logrus.Logger {
	if InfoLogger == nil {
		InitLogger()
	}
	return InfoLogger
}

// Error returns ErrorLogger, see Info.
func Error() *logrus.Logger {
	if ErrorLogger == nil {
		InitLogger()
	}
	return ErrorLogger
}
