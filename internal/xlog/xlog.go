// Package xlog is the process-wide zerolog configuration: a single global
// logger initialized once at startup and handed out to every component by
// dependency injection from there on.
package xlog

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is disabled until Init runs, so any component constructed before
// startup logging is configured fails silently rather than panicking.
var Log zerolog.Logger = zerolog.New(nil).Level(zerolog.Disabled)

// Init configures the global logger. Call once from main before
// constructing any exchange driver.
func Init(development bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro

	if development {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		Log = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05.000000",
		}).With().Timestamp().Caller().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Get returns the global logger, for libraries that want a *zerolog.Logger
// rather than a dependency-injected value.
func Get() *zerolog.Logger {
	return &Log
}
