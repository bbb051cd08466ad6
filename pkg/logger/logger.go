package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger (called once from main). Pretty output
// is meant for a terminal, JSON for everything else.
func Init(level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func Infof(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func Warnf(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func Errorf(format string, v ...any) {
	log.Error().Msgf(format, v...)
}

func Debugf(format string, v ...any) {
	log.Debug().Msgf(format, v...)
}

func Fatalf(format string, v ...any) {
	log.Fatal().Msgf(format, v...)
}
