// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global zerolog logger. Development environments get
// human readable console output, everything else gets JSON lines.
func Init(logLevelStr string, appEnv string) {
	var output io.Writer = os.Stdout
	if isDevelopment(appEnv) {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	initWith(output, logLevelStr)
}

func initWith(output io.Writer, logLevelStr string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(logLevelStr)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Err(err).Msgf("Invalid log level '%s', defaulting to 'info'", logLevelStr)
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// Component returns a child of the global logger tagged with name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func isDevelopment(appEnv string) bool {
	switch strings.ToLower(appEnv) {
	case "dev", "development":
		return true
	}
	return false
}
