// Package logger holds the process-wide logger shared by the bot's components.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the global logger. Components derive prefixed children from it.
var Logger *log.Logger

func init() {
	Logger = newLogger(os.Stderr, log.InfoLevel)
}

// Configure points the global logger at the given level and destination.
// An empty logFile keeps stderr.
func Configure(level, logFile string) error {
	var output io.Writer = os.Stderr
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		output = file
	}

	Logger = newLogger(output, parseLevel(level))
	return nil
}

// Named returns a child of the global logger tagged with prefix.
func Named(prefix string) *log.Logger {
	return Logger.WithPrefix(prefix)
}

// Discard returns a logger that drops everything, for tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	return l
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}
