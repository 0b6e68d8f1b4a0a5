package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/onurcolak/waapi-campaign-service/environments"
)

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	log = newLogger(os.Stderr, "info", "json")
}

// Init configures the global logger (called once from main).
func Init(cfg environments.LogConfig) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(os.Stderr, cfg.Level, cfg.Format)
}

// SetOutput redirects the global logger, mostly for tests.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(w, level, "json")
}

func newLogger(w io.Writer, level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// With returns a child context of the global logger for structured fields.
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

func get() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

func Infof(format string, v ...any) {
	get().Info().Msgf(format, v...)
}

func Warnf(format string, v ...any) {
	get().Warn().Msgf(format, v...)
}

func Errorf(format string, v ...any) {
	get().Error().Msgf(format, v...)
}

func Debugf(format string, v ...any) {
	get().Debug().Msgf(format, v...)
}

func Fatalf(format string, v ...any) {
	get().Fatal().Msgf(format, v...)
}
