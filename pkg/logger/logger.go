package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with the specified level and format.
// Logs go to stderr so command output on stdout stays machine readable.
func Init(level, format string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = New(os.Stderr, format)
}

// New returns a logger writing to w in the given format (json or console)
func New(w io.Writer, format string) zerolog.Logger {
	if strings.EqualFold(format, "console") {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	// JSON format (default)
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a configured level name to a zerolog level (defaults to info)
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns a reference to the global logger
func Get() *zerolog.Logger {
	return &log.Logger
}
