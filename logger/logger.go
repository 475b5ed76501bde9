package logger

import (
	"os"
	"strings"

	"github.com/Scalingo/sclng-repo-search/config"
	"github.com/sirupsen/logrus"
)

// Setup will configure logrus logger
func Setup(cfg config.Config) {
	var formatter logrus.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}

	if cfg.Logs.OutputLogsAsJSON {
		formatter = &logrus.JSONFormatter{}
	}

	logrus.SetFormatter(formatter)

	// stdout is kept for the command results
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(StringToLogrusLogType(cfg.Logs.Level))
}

// ForSubmission returns an entry tagged with the search submission, so that
// every log line of a search can be correlated
func ForSubmission(submissionID string, query string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"submissionID": submissionID,
		"query":        query,
	})
}

// StringToLogrusLogType will convert string to the right logrus level
func StringToLogrusLogType(logLevel string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	case "trace":
		return logrus.TraceLevel
	default:
		return logrus.ErrorLevel
	}
}
