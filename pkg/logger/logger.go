package logx

import (
	"crm_engine/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: config.Development,
}

type LoggerOpts struct {
	Environment config.Environment
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

func Init(opts ...LoggerOpts) {
	switch safe(opts...).Environment {
	case config.Production:
		log.Logger = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.NoColor = true })).
			With().Timestamp().Logger().Level(zerolog.InfoLevel)
	case config.Testing:
		log.Logger = log.Logger.Level(zerolog.Disabled)
	default:
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger()
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

// Logger returns the shared zerolog logger, for libraries that want a value.
func Logger() zerolog.Logger {
	return log.Logger
}
