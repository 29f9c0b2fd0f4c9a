// Package logging provides the process-wide structured logger for the
// server, wrapping zerolog the way cuemby/warren's pkg/log does for its
// own server components.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global, thread-safe logger. Init reconfigures it; until
// Init is called it writes human-readable console output to stderr.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

// Init reconfigures the global logger. json selects structured JSON output
// (for production); otherwise a human-readable console writer is used.
func Init(level string, json bool, out io.Writer) error {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)

	if json {
		Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return nil
}

// WithComponent returns a child logger tagged with the given component name,
// e.g. "journal", "dispatcher", "listener".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithConn returns a child logger tagged with a connection identifier.
func WithConn(connID string) zerolog.Logger {
	return Logger.With().Str("conn", connID).Logger()
}
