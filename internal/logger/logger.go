// Package logger provides the shared structured logger. Components receive a
// *log.Logger through their options and fall back to the package logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// EnvLevel names the environment variable consulted when no level is given.
const EnvLevel = "WTR_LOG_LEVEL"

// Logger is the process wide logger.
var Logger = newLogger(os.Stderr, log.InfoLevel)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	ret := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Prefix:          "wtr",
	})
	ret.SetLevel(level)
	return ret
}

// Configure replaces the package logger. Level precedence: argument, then
// WTR_LOG_LEVEL, then info. An empty file keeps stderr.
func Configure(level string, file string) error {
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	var output io.Writer = os.Stderr
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		output = f
	}
	Logger = newLogger(output, ParseLevel(level))
	return nil
}

// ParseLevel converts a level name, defaulting to info.
func ParseLevel(level string) log.Level {
	parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return parsed
}

// Discard returns a logger that drops every record; handy in tests.
func Discard() *log.Logger {
	return newLogger(io.Discard, log.FatalLevel)
}

// Or returns l when not nil, otherwise the package logger.
func Or(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return Logger
}
