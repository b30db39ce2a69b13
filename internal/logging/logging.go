package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"
)

// InitDefault sets up a console logger at info level, for use before
// flags and config are parsed.
func InitDefault() {
	log.Logger = console(false).Level(zerolog.InfoLevel)
}

// Init configures the global logger from viper. Unknown levels fall back
// to info with a warning rather than failing the command.
func Init() {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString(LevelKey)))
	if err != nil {
		level = zerolog.InfoLevel
	}

	switch viper.GetString(FormatKey) {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	default:
		log.Logger = console(viper.GetBool(NoColorKey))
	}
	log.Logger = log.Logger.Level(level)

	if err != nil {
		log.Warn().Str("level", viper.GetString(LevelKey)).Msg("unknown log level, using info")
	}
}

func console(noColor bool) zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}
	return zerolog.New(w).With().Timestamp().Logger()
}
