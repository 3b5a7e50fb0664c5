// Package logger provides the process-wide structured logger for capahost.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the global logger instance, configured once at startup by Initialize.
var Log zerolog.Logger

// Initialize sets up the global logger with the given level and output mode.
func Initialize(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Log = log.With().
		Str("service", "capahost").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("logger initialized")
}

// GetLogger returns the global logger instance.
func GetLogger() *zerolog.Logger {
	return &Log
}

// WebSocket creates a logger scoped to the WebSocket fan-out server.
func WebSocket() *zerolog.Logger {
	l := Log.With().Str("component", "websocket").Logger()
	return &l
}

// SQL creates a logger scoped to the SQL query builder and executor.
func SQL() *zerolog.Logger {
	l := Log.With().Str("component", "sql").Logger()
	return &l
}

// StateStore creates a logger scoped to the state-store capability.
func StateStore() *zerolog.Logger {
	l := Log.With().Str("component", "state-store").Logger()
	return &l
}

// HTTPCapability creates a logger scoped to the outbound HTTP capability.
func HTTPCapability() *zerolog.Logger {
	l := Log.With().Str("component", "http-capability").Logger()
	return &l
}

// Dispatcher creates a logger scoped to the per-event guest dispatcher.
func Dispatcher() *zerolog.Logger {
	l := Log.With().Str("component", "dispatcher").Logger()
	return &l
}

// Identity creates a logger scoped to the identity capability.
func Identity() *zerolog.Logger {
	l := Log.With().Str("component", "identity").Logger()
	return &l
}

// Messaging creates a logger scoped to the messaging capability.
func Messaging() *zerolog.Logger {
	l := Log.With().Str("component", "messaging").Logger()
	return &l
}
