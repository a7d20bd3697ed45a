// Package logging configures the process-wide zerolog logger.
//
// linkboot runs under a service supervisor, so logs go to stderr as
// console-formatted lines (journald captures and timestamps them).
// Configuration happens exactly once; the CLI's --verbose flag and the
// LINKBOOT_LOG_LEVEL / LINKBOOT_LOG_NOCOLOR environment variables select
// the level and formatting.
package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment overrides. A set LINKBOOT_LOG_LEVEL wins over the
// --verbose flag in both directions, so a unit file can pin the level
// regardless of how the command is invoked.
const (
	EnvLogLevel   = "LINKBOOT_LOG_LEVEL"
	EnvLogNoColor = "LINKBOOT_LOG_NOCOLOR"
)

var configureOnce sync.Once

// Configure installs the global logger. verbose selects debug level;
// environment variables are applied on top.
func Configure(verbose bool) {
	configureOnce.Do(func() {
		level := resolveLevel(verbose, os.Getenv(EnvLogLevel))

		writer := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			NoColor:    noColor(),
			TimeFormat: "15:04:05",
		}

		log.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	})
}

// resolveLevel combines the flag-derived default with the environment
// override. The environment wins whenever it parses to a valid level.
func resolveLevel(verbose bool, envLevel string) zerolog.Level {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if parsed, ok := parseLevel(envLevel); ok {
		level = parsed
	}
	return level
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

func noColor() bool {
	raw := os.Getenv(EnvLogNoColor)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true // any non-boolean value still reads as "turn color off"
	}
	return v
}
